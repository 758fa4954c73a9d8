package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SSE Stream", func() {
	Describe("GET /sse", func() {
		It("returns SSE headers", func() {
			req, err := http.NewRequest(http.MethodGet, testServer.BaseURL+"/sse", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Accept", "text/event-stream")

			streamCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			resp, err := http.DefaultClient.Do(req.WithContext(streamCtx))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		})

		It("announces the message endpoint as the first event", func() {
			sse := testServer.SSEClient()
			Expect(sse.Connect(ctx, "/sse")).To(Succeed())
			defer sse.Close()

			endpoint, err := sse.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(endpoint).To(HavePrefix("/message?sessionId="))
		})

		It("gives each connection a distinct session", func() {
			first := testServer.SSEClient()
			Expect(first.Connect(ctx, "/sse")).To(Succeed())
			defer first.Close()

			second := testServer.SSEClient()
			Expect(second.Connect(ctx, "/sse")).To(Succeed())
			defer second.Close()

			ep1, err := first.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			ep2, err := second.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ep1).NotTo(Equal(ep2))
		})

		It("delivers responses on the announcing stream", func() {
			sse := testServer.SSEClient()
			Expect(sse.Connect(ctx, "/sse")).To(Succeed())
			defer sse.Close()

			endpoint, err := sse.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())

			resp, err := httpClient().Post(
				testServer.BaseURL+endpoint,
				"application/json",
				bytes.NewBufferString(`{"jsonrpc":"2.0","id":42,"method":"tools/list"}`),
			)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			var rpcResp struct {
				JSONRPC string          `json:"jsonrpc"`
				ID      json.RawMessage `json:"id"`
				Result  struct {
					Tools []struct {
						Name string `json:"name"`
					} `json:"tools"`
				} `json:"result"`
			}
			Expect(sse.WaitForResponse(&rpcResp, 5*time.Second)).To(Succeed())
			Expect(string(rpcResp.ID)).To(Equal("42"))
			Expect(rpcResp.Result.Tools).To(HaveLen(5))
			Expect(rpcResp.Result.Tools[0].Name).To(Equal("openFile"))
		})

		It("removes the session when the client disconnects", func() {
			// Streams closed by earlier specs are reaped asynchronously;
			// wait for the table to drain before counting.
			Eventually(testServer.Sessions.Len, 5*time.Second, 50*time.Millisecond).Should(Equal(0))

			sse := testServer.SSEClient()
			Expect(sse.Connect(ctx, "/sse")).To(Succeed())
			_, err := sse.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			Eventually(testServer.Sessions.Len, 5*time.Second, 50*time.Millisecond).Should(Equal(1))

			sse.Close()
			Eventually(testServer.Sessions.Len, 5*time.Second, 50*time.Millisecond).Should(Equal(0))
		})

		It("keeps serving after a client drops mid-stream", func() {
			sse := testServer.SSEClient()
			Expect(sse.Connect(ctx, "/sse")).To(Succeed())
			sse.Close()

			status, body := getJSON("/health")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("ok"))
		})
	})

	Describe("Response routing", func() {
		It("does not deliver another session's responses", func() {
			first := testServer.SSEClient()
			Expect(first.Connect(ctx, "/sse")).To(Succeed())
			defer first.Close()
			second := testServer.SSEClient()
			Expect(second.Connect(ctx, "/sse")).To(Succeed())
			defer second.Close()

			ep1, err := first.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())
			_, err = second.Endpoint(5 * time.Second)
			Expect(err).NotTo(HaveOccurred())

			resp, err := httpClient().Post(
				testServer.BaseURL+ep1,
				"application/json",
				bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`),
			)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			events := second.CollectEvents(time.Second)
			for _, evt := range events {
				if evt.Type == "" && strings.Contains(evt.Data, `"result"`) {
					Fail("second session received first session's response")
				}
			}
		})
	})
})

var _ = Describe("Scripted editor plumbing", func() {
	It("records options passed through a full round trip", func() {
		testServer.Editor.Reset()

		sse := testServer.SSEClient()
		Expect(sse.Connect(ctx, "/sse")).To(Succeed())
		defer sse.Close()

		endpoint, err := sse.Endpoint(5 * time.Second)
		Expect(err).NotTo(HaveOccurred())

		resp, err := httpClient().Post(
			testServer.BaseURL+endpoint,
			"application/json",
			bytes.NewBufferString(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"openFile","arguments":{"path":"/tmp/x.go","line":12}}}`),
		)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		var rpcResp map[string]any
		Expect(sse.WaitForResponse(&rpcResp, 5*time.Second)).To(Succeed())

		calls := testServer.Editor.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Kind).To(Equal("file"))
		Expect(calls[0].Path).To(Equal("/tmp/x.go"))
		Expect(calls[0].Opts.Line).To(Equal(12))
	})
})
