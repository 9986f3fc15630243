package authcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/mathai/cmd/mathai/auth"
	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		server *httptest.Server
		seen   api.LoginRequest
	)

	newCmd := func(stdin string, args ...string) (*cobra.Command, *bytes.Buffer) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .mathai/ config directory")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd, out
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())
		GinkgoT().Setenv(credentials.TokenEnvVar, "")

		mux := http.NewServeMux()
		mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&seen)).To(Succeed())
			if seen.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"tok-ada","token_type":"bearer","user_id":7}`))
		})
		mux.HandleFunc("POST /register", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"tok-new","status":"success"}`))
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		server.Close()
		os.RemoveAll(tmpDir)
	})

	It("has login, register, logout and status subcommands", func() {
		cmd := authcmder.NewAuthCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("login", "register", "logout", "status"))
	})

	Describe("login", func() {
		It("stores the token for the backend", func() {
			cmd, out := newCmd("secret\n", "login", "ada", "--base-url", server.URL)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Logged in as"))
			Expect(seen.Username).To(Equal("ada"))

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			session, err := mgr.GetSession(server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(session).To(Equal(credentials.HostCredential{Username: "ada", Token: "tok-ada"}))
		})

		It("reports the backend's rejection", func() {
			cmd, _ := newCmd("wrong\n", "login", "ada", "--base-url", server.URL)
			err := cmd.Execute()
			Expect(err).To(MatchError("Incorrect username or password"))

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			hosts, err := mgr.ListHosts()
			Expect(err).NotTo(HaveOccurred())
			Expect(hosts).To(BeEmpty())
		})

		It("rejects an empty password", func() {
			cmd, _ := newCmd("\n", "login", "ada", "--base-url", server.URL)
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("password cannot be empty")))
		})

		It("requires a username", func() {
			cmd, _ := newCmd("secret\n", "login")
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("register", func() {
		It("requires --email", func() {
			cmd, _ := newCmd("secret\n", "register", "ada", "--base-url", server.URL)
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("--email is required")))
		})

		It("stores the new token", func() {
			cmd, _ := newCmd("secret\n", "register", "ada", "--email", "ada@example.com", "--base-url", server.URL)
			Expect(cmd.Execute()).To(Succeed())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Store(server.URL).Token()).To(Equal("tok-new"))
		})
	})

	Describe("status and logout", func() {
		It("shows stored sessions and forgets them on logout", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetSession(server.URL, "ada", "tok")).To(Succeed())

			cmd, out := newCmd("", "status")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring(server.URL))
			Expect(out.String()).To(ContainSubstring("as ada"))

			cmd, out = newCmd("", "logout", "--base-url", server.URL)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("(ada)"))

			cmd, out = newCmd("", "status")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Not logged in"))
		})
	})
})
