package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func httpClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func getJSON(path string) (int, map[string]any) {
	resp, err := httpClient().Get(testServer.BaseURL + path)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var body map[string]any
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(data, &body)).To(Succeed())
	return resp.StatusCode, body
}

var _ = Describe("HTTP Endpoints", func() {
	Describe("GET /health", func() {
		It("reports ok with the tool count", func() {
			status, body := getJSON("/health")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("ok"))
			Expect(body["tools"]).To(BeEquivalentTo(5))
		})
	})

	Describe("GET /status", func() {
		It("reports version and session count", func() {
			status, body := getJSON("/status")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("ok"))
			Expect(body["version"]).To(Equal("citest"))
			Expect(body).To(HaveKey("sessions"))
			Expect(body).To(HaveKey("uptime"))
		})
	})

	Describe("POST /message", func() {
		It("rejects an unknown session with a 400", func() {
			resp, err := httpClient().Post(
				testServer.BaseURL+"/message?sessionId=nope",
				"application/json",
				bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`),
			)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["error"]).To(Equal("Invalid session"))
		})

		It("rejects malformed JSON with a 400", func() {
			sse := testServer.SSEClient()
			Expect(sse.Connect(ctx, "/sse")).To(Succeed())
			defer sse.Close()

			endpoint, err := sse.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())

			resp, err := httpClient().Post(
				testServer.BaseURL+endpoint,
				"application/json",
				bytes.NewBufferString(`{not json`),
			)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body["error"]).To(Equal("Invalid JSON"))
		})
	})

	Describe("CORS", func() {
		It("answers preflight with 204 and permissive headers", func() {
			req, err := http.NewRequest(http.MethodOptions, testServer.BaseURL+"/message", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")

			resp, err := httpClient().Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		It("allows cross-origin reads of /health", func() {
			req, err := http.NewRequest(http.MethodGet, testServer.BaseURL+"/health", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Origin", "http://example.com")

			resp, err := httpClient().Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})
})
