package chat

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Conversation", func() {
	It("assigns a fresh ID to each message", func() {
		a := NewMessage(RoleUser, "hi")
		b := NewMessage(RoleUser, "hi")
		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
	})

	It("appends in order", func() {
		var c Conversation
		c.Append(NewMessage(RoleUser, "one"))
		c.Append(NewMessage(RoleAssistant, "two"))

		Expect(c.Len()).To(Equal(2))
		Expect(c.Messages()[0].Content).To(Equal("one"))
		Expect(c.Messages()[1].Content).To(Equal("two"))
	})

	Describe("Find", func() {
		It("returns a mutable pointer into the conversation", func() {
			var c Conversation
			m := NewMessage(RoleAssistant, "")
			c.Append(m)

			found := c.Find(m.ID)
			Expect(found).NotTo(BeNil())
			found.Content += "Hello"

			Expect(c.Messages()[0].Content).To(Equal("Hello"))
		})

		It("returns nil for unknown IDs", func() {
			var c Conversation
			Expect(c.Find("nope")).To(BeNil())
		})
	})

	Describe("Remove", func() {
		It("deletes the message and preserves order", func() {
			var c Conversation
			first := NewMessage(RoleUser, "first")
			middle := NewMessage(RoleAssistant, "middle")
			last := NewMessage(RoleUser, "last")
			c.Append(first)
			c.Append(middle)
			c.Append(last)

			Expect(c.Remove(middle.ID)).To(BeTrue())
			Expect(c.Len()).To(Equal(2))
			Expect(c.Messages()[0].Content).To(Equal("first"))
			Expect(c.Messages()[1].Content).To(Equal("last"))
		})

		It("reports false for unknown IDs", func() {
			var c Conversation
			Expect(c.Remove("nope")).To(BeFalse())
		})
	})

	Describe("Wire", func() {
		It("drops IDs and keeps role and content", func() {
			var c Conversation
			c.Append(NewMessage(RoleUser, "question"))
			c.Append(NewMessage(RoleAssistant, "answer"))

			wire := c.Wire()
			Expect(wire).To(Equal([]WireMessage{
				{Role: RoleUser, Content: "question"},
				{Role: RoleAssistant, Content: "answer"},
			}))
		})
	})
})
