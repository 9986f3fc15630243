package api_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathai/pkg/api"
)

var _ = Describe("Lookup", func() {
	It("resolves snake case names", func() {
		path, err := api.Lookup("related_questions")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/v1/related_questions"))
	})

	It("resolves upper case and dashed names", func() {
		path, err := api.Lookup("REFERENCE_FILES")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(api.ReferenceFiles))

		path, err = api.Lookup("api-keys")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(api.APIKeys))
	})

	It("maps completions to the generate endpoint", func() {
		path, err := api.Lookup("completions")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/v1/chat/completions"))
	})

	It("rejects unknown names", func() {
		_, err := api.Lookup("nope")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("IsUnauthenticated", func() {
	DescribeTable("auth exclusion policy",
		func(path string, expected bool) {
			Expect(api.IsUnauthenticated(path)).To(Equal(expected))
		},
		Entry("login", "/auth", true),
		Entry("login with query", "/auth?next=/main", true),
		Entry("register", "/register", true),
		Entry("completions", "/v1/chat/completions", false),
		Entry("conversations", "/conversations", false),
		Entry("api keys", "/api-keys", false),
	)
})
