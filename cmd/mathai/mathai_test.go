package mathaicmder_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	mathaicmder "github.com/papercomputeco/mathai/cmd/mathai"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/credentials"
)

var _ = Describe("NewMathaiCmd", func() {
	It("registers every subcommand", func() {
		cmd := mathaicmder.NewMathaiCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"auth", "chat", "ask", "conversations", "upload", "download", "keys", "api", "config", "version",
		))
	})

	It("has the global flags", func() {
		cmd := mathaicmder.NewMathaiCmd()
		for _, name := range []string{"debug", "config-dir", "log-file", "json-logs"} {
			Expect(cmd.PersistentFlags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.PersistentFlags().Lookup("debug").Shorthand).To(Equal("d"))
	})
})

var _ = Describe("Subcommands against a backend", func() {
	var (
		tmpDir   string
		server   *httptest.Server
		uploaded string
		formLang string
		keyBody  api.APIKeyAction
		authz    string
		renamed  api.UpdateConversationRequest
		deleted  []string
	)

	run := func(args ...string) (string, error) {
		cmd := mathaicmder.NewMathaiCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader(""))
		cmd.SetArgs(append(args, "--config-dir", tmpDir, "--base-url", server.URL))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "mathai-test-*")
		Expect(err).NotTo(HaveOccurred())
		GinkgoT().Setenv(credentials.TokenEnvVar, "tok")

		uploaded, formLang, authz = "", "", ""
		keyBody = api.APIKeyAction{}
		renamed, deleted = api.UpdateConversationRequest{}, nil

		mux := http.NewServeMux()
		mux.HandleFunc("GET /conversations", func(w http.ResponseWriter, r *http.Request) {
			authz = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`[
				{"conversation_id":1,"title":"Limits","messages":[{"role":"user","content":"lim sin(x)/x"},{"role":"assistant","content":"1"}]},
				{"conversation_id":2,"title":"","messages":[]}
			]`))
		})
		mux.HandleFunc("POST /conversations", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"conversation_id":3}`))
		})
		mux.HandleFunc("GET /conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") != "1" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"conversation does not exist"}`))
				return
			}
			_, _ = w.Write([]byte(`{"messages":[{"role":"user","content":"lim sin(x)/x","timestamp":"2025-03-01T10:00:00"},{"role":"assistant","content":"1"}]}`))
		})
		mux.HandleFunc("PATCH /conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&renamed)
			_, _ = w.Write([]byte(`{"status":"success","message":"updated"}`))
		})
		mux.HandleFunc("DELETE /conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") == "9" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"conversation does not exist"}`))
				return
			}
			deleted = append(deleted, r.PathValue("id"))
			_, _ = w.Write([]byte(`{"status":"success","message":"deleted"}`))
		})
		mux.HandleFunc("GET /api-keys", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":"key_1","user_id":7,"api_key":"mk-abc","created_at":"2025-03-01 10:00:00","last_used":null}]}`))
		})
		mux.HandleFunc("GET /api/download", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("file_path") != "kb/groups.pdf" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"file not found: rings.pdf"}`))
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("%PDF-1.7 groups"))
		})
		mux.HandleFunc("POST /v1/ocr", func(w http.ResponseWriter, r *http.Request) {
			f, _, err := r.FormFile("file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b, _ := io.ReadAll(f)
			uploaded = string(b)
			formLang = r.FormValue("lang")
			_, _ = w.Write([]byte(`{"message":"x^2 + 1 = 0"}`))
		})
		mux.HandleFunc("POST /api-keys", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&keyBody)
			_, _ = w.Write([]byte(`{"status":"success","key":"mk-1"}`))
		})
		mux.HandleFunc("POST /v1/related_questions", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"related_questions":["Why?"]}`))
		})
		mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: not json\n\ndata: [DONE]\n\n"))
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		server.Close()
		os.RemoveAll(tmpDir)
	})

	Describe("conversations", func() {
		It("lists conversations", func() {
			out, err := run("conversations")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Limits"))
			Expect(out).To(ContainSubstring("2 messages"))
			Expect(out).To(ContainSubstring("(untitled)"))
			Expect(authz).To(Equal("Bearer tok"))
		})

		It("shows one conversation", func() {
			out, err := run("conversations", "--show", "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("lim sin(x)/x"))

			Expect(out).To(ContainSubstring("2025-03-01T10:00:00"))

			_, err = run("conversations", "--show", "9")
			Expect(err).To(MatchError("conversation 9 not found"))
		})

		It("renames a conversation", func() {
			out, err := run("conversations", "--rename", "1", "--title", "Limits at zero")
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.Title).To(Equal("Limits at zero"))
			Expect(out).To(ContainSubstring("Renamed conversation"))

			_, err = run("conversations", "--rename", "1")
			Expect(err).To(MatchError("--rename requires --title"))
		})

		It("deletes a conversation", func() {
			out, err := run("conversations", "--delete", "2")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal([]string{"2"}))
			Expect(out).To(ContainSubstring("Deleted conversation"))

			_, err = run("conversations", "--delete", "9")
			Expect(err).To(MatchError("conversation 9 not found"))
		})

		It("refuses more than one action at a time", func() {
			_, err := run("conversations", "--show", "1", "--delete", "1")
			Expect(err).To(HaveOccurred())
			Expect(deleted).To(BeEmpty())
		})

		It("creates a conversation", func() {
			out, err := run("conversations", "--create", "Series")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("#3"))
		})
	})

	Describe("upload", func() {
		It("uploads the file to the OCR endpoint", func() {
			path := filepath.Join(tmpDir, "problem.txt")
			Expect(os.WriteFile(path, []byte("image bytes"), 0o600)).To(Succeed())

			out, err := run("upload", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(uploaded).To(Equal("image bytes"))
			Expect(out).To(ContainSubstring("x^2 + 1 = 0"))
		})

		It("fails for a missing file", func() {
			_, err := run("upload", filepath.Join(tmpDir, "nope.png"))
			Expect(err).To(MatchError(ContainSubstring("opening file")))
		})
	})

	Describe("download", func() {
		It("saves the file to --output", func() {
			dest := filepath.Join(tmpDir, "groups.pdf")
			out, err := run("download", "kb/groups.pdf", "-o", dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("(15 bytes)"))

			b, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(b)).To(Equal("%PDF-1.7 groups"))
		})

		It("accepts the printed download URL and writes to stdout", func() {
			out, err := run("download", "/api/download?file_path=kb%2Fgroups.pdf", "-o", "-")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("%PDF-1.7 groups"))
		})

		It("does not overwrite without --force", func() {
			dest := filepath.Join(tmpDir, "groups.pdf")
			Expect(os.WriteFile(dest, []byte("mine"), 0o600)).To(Succeed())

			_, err := run("download", "kb/groups.pdf", "-o", dest)
			Expect(err).To(MatchError(ContainSubstring("already exists")))
			b, _ := os.ReadFile(dest)
			Expect(string(b)).To(Equal("mine"))

			_, err = run("download", "kb/groups.pdf", "-o", dest, "--force")
			Expect(err).NotTo(HaveOccurred())
			b, _ = os.ReadFile(dest)
			Expect(string(b)).To(Equal("%PDF-1.7 groups"))
		})

		It("reports a missing file and leaves nothing behind", func() {
			dest := filepath.Join(tmpDir, "rings.pdf")
			_, err := run("download", "kb/rings.pdf", "-o", dest)
			Expect(err).To(MatchError(ContainSubstring("file not found: rings.pdf")))
			Expect(dest).NotTo(BeAnExistingFile())
		})
	})

	Describe("keys", func() {
		It("lists keys", func() {
			out, err := run("keys", "list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("mk-abc"))
			Expect(out).To(ContainSubstring("last used never"))
		})

		It("revokes a key", func() {
			out, err := run("keys", "revoke", "mk-0")
			Expect(err).NotTo(HaveOccurred())
			Expect(keyBody).To(Equal(api.APIKeyAction{Action: "revoke", Key: "mk-0"}))
			Expect(out).To(ContainSubstring("mk-1"))
		})
	})

	Describe("api", func() {
		It("resolves symbolic endpoints and prints JSON", func() {
			out, err := run("api", "RELATED_QUESTIONS", "-d", `{"question":"What?"}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring(`"Why?"`))
		})

		It("rejects unknown endpoint names", func() {
			_, err := run("api", "nowhere")
			Expect(err).To(MatchError(ContainSubstring("unknown endpoint")))
		})

		It("streams deltas and warns about malformed frames", func() {
			out, err := run("api", "generate", "--stream", "-d", `{"messages":[]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("ok\n"))
			Expect(out).To(ContainSubstring("warning: frame_parse"))
		})

		It("sends multipart forms with fields and files", func() {
			path := filepath.Join(tmpDir, "problem.png")
			Expect(os.WriteFile(path, []byte("png bytes"), 0o600)).To(Succeed())

			out, err := run("api", "ocr", "-F", "file=@"+path, "-F", "lang=en")
			Expect(err).NotTo(HaveOccurred())
			Expect(uploaded).To(Equal("png bytes"))
			Expect(formLang).To(Equal("en"))
			Expect(out).To(ContainSubstring("x^2 + 1 = 0"))

			_, err = run("api", "ocr", "-F", "nofield")
			Expect(err).To(MatchError(ContainSubstring("invalid form field")))

			_, err = run("api", "ocr", "-F", "lang=en", "-d", `{}`)
			Expect(err).To(MatchError(ContainSubstring("--form cannot be combined")))
		})

		It("rejects malformed headers", func() {
			_, err := run("api", "generate", "-H", "nocolon")
			Expect(err).To(MatchError(ContainSubstring("invalid header")))
		})
	})

	Describe("version", func() {
		It("prints build information", func() {
			cmd := mathaicmder.NewMathaiCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.SetArgs([]string{"version"})
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Version: dev"))
		})
	})
})
