package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/request"
	"github.com/papercomputeco/mathai/pkg/stream"
	"github.com/papercomputeco/mathai/pkg/transport"
)

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *transport.Client
		last    *http.Request
		lastRaw []byte
	)

	BeforeEach(func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			last = r
			lastRaw, _ = io.ReadAll(r.Body)
			handler(w, r)
		}))
		client = transport.New(transport.Config{
			BaseURL: server.URL,
			Token:   func() string { return "secret" },
		})
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Do", func() {
		It("returns the JSON body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"related_questions":["a","b"]}`))
			}

			raw, err := client.Do(context.Background(), request.New(api.RelatedQuestions, "POST", api.RelatedQuestionsRequest{Question: "q"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(MatchJSON(`{"related_questions":["a","b"]}`))

			Expect(last.Method).To(Equal(http.MethodPost))
			Expect(last.URL.Path).To(Equal(api.RelatedQuestions))
			Expect(last.Header.Get("Authorization")).To(Equal("Bearer secret"))
			Expect(last.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(last.Header.Get("X-Request-Id")).NotTo(BeEmpty())
			Expect(string(lastRaw)).To(MatchJSON(`{"question":"q"}`))
		})

		It("keeps a caller supplied request id", func() {
			call := request.New("/conversations", "GET", nil).WithHeaders(map[string]string{"X-Request-Id": "abc"})
			_, err := client.Do(context.Background(), call)
			Expect(err).NotTo(HaveOccurred())
			Expect(last.Header.Get("X-Request-Id")).To(Equal("abc"))
		})

		It("yields nothing on 204", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}
			raw, err := client.Do(context.Background(), request.New("/conversations/1", "DELETE", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(BeNil())
		})

		DescribeTable("derives the HTTPError message",
			func(status int, body, message string) {
				handler = func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(status)
					_, _ = w.Write([]byte(body))
				}

				_, err := client.Do(context.Background(), request.New("/auth", "POST", nil))
				var httpErr *transport.HTTPError
				Expect(errors.As(err, &httpErr)).To(BeTrue())
				Expect(httpErr.StatusCode).To(Equal(status))
				Expect(httpErr.Message).To(Equal(message))
				Expect(err.Error()).To(Equal(message))
			},
			Entry("detail string", http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`, "Incorrect username or password"),
			Entry("detail object", http.StatusBadRequest, `{"detail":{"message":"bad input"}}`, "bad input"),
			Entry("status/message envelope", http.StatusInternalServerError, `{"status":"error","message":"model offline"}`, "model offline"),
			Entry("non-JSON body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"),
			Entry("empty detail", http.StatusNotFound, `{"detail":""}`, "Not Found"),
			Entry("unknown status", 599, ``, "HTTP Error: 599"),
		)

		It("rejects non-JSON success bodies", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			}
			_, err := client.Do(context.Background(), request.New("/conversations", "GET", nil))
			Expect(err).To(MatchError(ContainSubstring("invalid JSON")))
		})

		It("surfaces build errors without sending", func() {
			last = nil
			_, err := client.Do(context.Background(), request.New("/conversations", "OPTIONS", nil))
			var buildErr *request.BuildError
			Expect(errors.As(err, &buildErr)).To(BeTrue())
			Expect(last).To(BeNil())
		})
	})

	Describe("DoJSON", func() {
		It("decodes into the target", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"access_token":"t","token_type":"bearer","user_id":7}`))
			}
			var out api.AuthResponse
			Expect(client.DoJSON(context.Background(), request.New(api.Auth, "POST", api.LoginRequest{Username: "u", Password: "p"}), &out)).To(Succeed())
			Expect(out.AccessToken).To(Equal("t"))
			Expect(string(out.UserID)).To(Equal("7"))
			Expect(last.Header.Get("Authorization")).To(BeEmpty())
		})

		It("leaves the target untouched on 204", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}
			out := api.AuthResponse{AccessToken: "keep"}
			Expect(client.DoJSON(context.Background(), request.New("/x", "POST", nil), &out)).To(Succeed())
			Expect(out.AccessToken).To(Equal("keep"))
		})
	})

	Describe("Open", func() {
		It("forces stream:true and hands back the body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte("data: [DONE]\n\n"))
			}

			resp, err := client.Open(context.Background(), request.New(api.Generate, "POST", api.ChatRequest{Model: "m"}))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("data: [DONE]\n\n"))

			var sent map[string]any
			Expect(json.Unmarshal(lastRaw, &sent)).To(Succeed())
			Expect(sent).To(HaveKeyWithValue("stream", true))
			Expect(sent).To(HaveKeyWithValue("model", "m"))
			Expect(last.Header.Get("Accept")).To(Equal("text/event-stream"))
		})

		It("wraps a bad status in a TransportError", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"detail":"ignored"}`))
			}

			_, err := client.Open(context.Background(), request.New(api.Generate, "POST", nil))
			var transportErr *stream.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			var httpErr *transport.HTTPError
			Expect(errors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.Message).To(Equal("HTTP error! status: 503"))
		})

		It("wraps connection failures in a TransportError", func() {
			server.Close()
			_, err := client.Open(context.Background(), request.New(api.Generate, "POST", nil))
			var transportErr *stream.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
		})

		It("returns the context error when canceled before the response", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := client.Open(ctx, request.New(api.Generate, "POST", nil))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			var transportErr *stream.TransportError
			Expect(errors.As(err, &transportErr)).To(BeFalse())
		})

		It("tees the raw body when tracing", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("data: {}\n\n"))
			}
			var trace bytes.Buffer
			traced := transport.New(transport.Config{BaseURL: server.URL}, transport.WithTrace(&trace))

			resp, err := traced.Open(context.Background(), request.New(api.Generate, "POST", nil))
			Expect(err).NotTo(HaveOccurred())
			_, err = io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Body.Close()).To(Succeed())
			Expect(trace.String()).To(Equal("data: {}\n\n"))
		})
	})

	Describe("Fetch", func() {
		It("copies a binary body with the data folded into the query", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write([]byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff})
			}

			var buf bytes.Buffer
			n, err := client.Fetch(context.Background(), request.New(api.Download, "GET", map[string]string{"file_path": "kb/linear algebra.pdf"}), &buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically("==", 6))
			Expect(buf.Bytes()).To(Equal([]byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff}))

			Expect(last.Method).To(Equal(http.MethodGet))
			Expect(last.URL.Path).To(Equal(api.Download))
			Expect(last.URL.Query().Get("file_path")).To(Equal("kb/linear algebra.pdf"))
			Expect(last.Header.Get("Authorization")).To(Equal("Bearer secret"))
			Expect(lastRaw).To(BeEmpty())
		})

		It("reports a bad status as an HTTPError and writes nothing", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"file not found: x.pdf"}`))
			}

			var buf bytes.Buffer
			_, err := client.Fetch(context.Background(), request.New(api.Download, "GET", map[string]string{"file_path": "x.pdf"}), &buf)
			var httpErr *transport.HTTPError
			Expect(errors.As(err, &httpErr)).To(BeTrue())
			Expect(httpErr.StatusCode).To(Equal(http.StatusNotFound))
			Expect(err).To(MatchError("file not found: x.pdf"))
			Expect(buf.Len()).To(BeZero())
		})
	})

	Describe("Upload", func() {
		var parts map[string]string

		BeforeEach(func() {
			parts = map[string]string{}
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				Expect(err).NotTo(HaveOccurred())
				mr := multipart.NewReader(bytes.NewReader(lastRaw), params["boundary"])
				for {
					p, err := mr.NextPart()
					if err != nil {
						break
					}
					content, _ := io.ReadAll(p)
					parts[p.FormName()] = p.FileName() + ":" + string(content)
				}
				_, _ = w.Write([]byte(`{"message":"uploaded"}`))
			}
		})

		It("sends a single file field with the default auth header", func() {
			raw, err := client.Upload(context.Background(), api.OCR, request.File{Name: "eq.png", Reader: strings.NewReader("PNG")}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(MatchJSON(`{"message":"uploaded"}`))
			Expect(parts).To(Equal(map[string]string{"file": "eq.png:PNG"}))
			Expect(last.Header.Get("Authorization")).To(Equal("Bearer secret"))
			Expect(last.Header.Get("Content-Type")).To(HavePrefix("multipart/form-data"))
		})

		It("replaces the default headers when the caller passes some", func() {
			_, err := client.Upload(context.Background(), api.OCR,
				request.File{Name: "a.txt", Reader: strings.NewReader("x")},
				map[string]string{"x-source": "cli"},
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(last.Header.Get("Authorization")).To(BeEmpty())
			Expect(last.Header.Get("X-Source")).To(Equal("cli"))
		})

		It("reports bad statuses by code", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
			}
			_, err := client.Upload(context.Background(), api.OCR, request.File{Name: "big", Reader: strings.NewReader("x")}, nil)
			Expect(err).To(MatchError("HTTP error! status: 413"))
		})
	})
})
