package cliui_test

import (
	"bytes"
	"errors"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mathai/pkg/cliui"
)

var _ = Describe("cliui", func() {
	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("marks errors", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})

	It("reports the step result", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Signing in", func() error { return errors.New("nope") })
		Expect(err).To(MatchError("nope"))
		Expect(buf.String()).To(ContainSubstring("Signing in"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("falls back when not attached to a terminal", func() {
		f, err := os.CreateTemp("", "cliui-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.Remove(f.Name()) })
		defer f.Close()

		Expect(cliui.IsTerminal(f)).To(BeFalse())
		Expect(cliui.Width(f, 100)).To(Equal(100))
	})

	It("renders markdown", func() {
		out, err := cliui.RenderMarkdown("# Limits\n\nThe limit is **1**.", 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Limits"))
		Expect(out).To(ContainSubstring("1"))
	})
})
