package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kosar/responses-api/pkg/cliui"
)

var _ = Describe("Step", func() {
	It("runs fn and reports success", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "connecting to relay", func() error {
			return nil
		})
		Expect(err).NotTo(HaveOccurred())

		output := buf.String()
		Expect(output).To(ContainSubstring("connecting to relay"))
		Expect(output).To(ContainSubstring(cliui.SuccessMark))
	})

	It("returns fn's error and reports failure", func() {
		var buf bytes.Buffer
		stepErr := errors.New("connection refused")
		err := cliui.Step(&buf, "connecting to relay", func() error {
			return stepErr
		})
		Expect(err).To(MatchError(stepErr))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})
})

var _ = Describe("Mark", func() {
	It("returns the success mark for nil errors", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
	})

	It("returns the fail mark for non-nil errors", func() {
		Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations as milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats second-scale durations with one decimal", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})
