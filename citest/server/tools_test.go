package server_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/editorbridge/internal/client"
)

var _ = Describe("Tool calls over the wire", func() {
	var c *client.Client

	BeforeEach(func() {
		testServer.Editor.Reset()

		var err error
		c, err = client.Connect(ctx, testServer.BaseURL)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		c.Close()
	})

	It("completes the initialize handshake", func() {
		result, err := c.Initialize(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ServerInfo.Name).To(Equal("editorbridge"))
		Expect(result.ProtocolVersion).NotTo(BeEmpty())
	})

	It("lists the full tool catalog", func() {
		tools, err := c.ListTools(ctx)
		Expect(err).NotTo(HaveOccurred())

		names := make([]string, len(tools))
		for i, t := range tools {
			names[i] = t.Name
		}
		Expect(names).To(Equal([]string{
			"openFile", "openDiff", "getChangedFiles", "openChangedFiles", "runCommand",
		}))
	})

	It("opens a diff with the default ref", func() {
		result, err := c.CallTool(ctx, "openDiff", map[string]any{"path": "/tmp/a.go"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		calls := testServer.Editor.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Kind).To(Equal("diff"))
		Expect(calls[0].Ref).To(Equal("HEAD"))
	})

	It("flags missing arguments instead of failing the RPC", func() {
		result, err := c.CallTool(ctx, "openFile", map[string]any{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())
		Expect(result.Content).NotTo(BeEmpty())
		Expect(result.Content[0].Text).To(ContainSubstring("path"))
	})

	It("flags unknown tools instead of failing the RPC", func() {
		result, err := c.CallTool(ctx, "explode", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())
		Expect(result.Content[0].Text).To(ContainSubstring("Tool not found"))
	})

	It("surfaces unknown methods as RPC errors", func() {
		_, err := c.Call(ctx, "bogus/method", nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Unknown method: bogus/method"))
	})

	Describe("against a real repository", func() {
		var repo string

		BeforeEach(func() {
			if _, err := exec.LookPath("git"); err != nil {
				Skip("git not installed")
			}

			repo = GinkgoT().TempDir()
			run := func(args ...string) {
				cmd := exec.Command("git", args...)
				cmd.Dir = repo
				out, err := cmd.CombinedOutput()
				Expect(err).NotTo(HaveOccurred(), string(out))
			}

			run("init", "-b", "main")
			run("config", "user.email", "test@example.com")
			run("config", "user.name", "Test")

			Expect(os.WriteFile(filepath.Join(repo, "a.txt"), []byte("one\n"), 0o644)).To(Succeed())
			run("add", "-A")
			run("commit", "-m", "first")

			Expect(os.WriteFile(filepath.Join(repo, "a.txt"), []byte("one\ntwo\n"), 0o644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(repo, "b.txt"), []byte("new\n"), 0o644)).To(Succeed())
			run("add", "-A")
			run("commit", "-m", "second")
		})

		It("lists changed files between the default refs", func() {
			result, err := c.CallTool(ctx, "getChangedFiles", map[string]any{"repoPath": repo})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())

			var payload struct {
				Files []struct {
					Path   string `json:"path"`
					Status string `json:"status"`
				} `json:"files"`
				FromRef string `json:"fromRef"`
				ToRef   string `json:"toRef"`
			}
			Expect(json.Unmarshal([]byte(result.Content[0].Text), &payload)).To(Succeed())
			Expect(payload.FromRef).To(Equal("HEAD~1"))
			Expect(payload.ToRef).To(Equal("HEAD"))
			Expect(payload.Files).To(HaveLen(2))
			Expect(strings.HasSuffix(payload.Files[0].Path, "a.txt")).To(BeTrue())
			Expect(payload.Files[0].Status).To(Equal("M"))
		})

		It("opens each changed file, pinned", func() {
			result, err := c.CallTool(ctx, "openChangedFiles", map[string]any{"repoPath": repo})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())

			calls := testServer.Editor.Calls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].Kind).To(Equal("diff"))
			Expect(calls[1].Kind).To(Equal("file"))
			for _, call := range calls {
				Expect(call.Opts.Pin).To(BeTrue())
			}
		})
	})
})
