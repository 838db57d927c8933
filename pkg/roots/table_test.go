package roots_test

import (
	"github.com/hashicorp/go-multierror"
	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/kairos-io/recoveryroots/pkg/roots"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("root table", func() {
	Context("SplitRootPath", func() {
		It("splits at the first separator", func() {
			name, rel, ok := roots.SplitRootPath("SYSTEM:lib/libc.so")
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("SYSTEM"))
			Expect(rel).To(Equal("lib/libc.so"))

			name, rel, ok = roots.SplitRootPath("PKG:a:b")
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal("PKG"))
			Expect(rel).To(Equal("a:b"))
		})
		It("fails without separator", func() {
			_, _, ok := roots.SplitRootPath("SYSTEM")
			Expect(ok).To(BeFalse())
		})
	})

	Context("ValidateBareRoot", func() {
		It("accepts a bare root", func() {
			name, err := roots.ValidateBareRoot("DATA:")
			Expect(err).ToNot(HaveOccurred())
			Expect(name).To(Equal("DATA"))
		})
		DescribeTable("rejects anything with a relative part or without separator",
			func(root string) {
				_, err := roots.ValidateBareRoot(root)
				Expect(err).To(MatchError(cnst.ErrInvalidRoot))
			},
			Entry("sub path", "DATA:app"),
			Entry("slash", "DATA:/"),
			Entry("no separator", "DATA"),
			Entry("empty", ""),
		)
	})

	Context("NewTable", func() {
		It("looks roots up by the name before the separator", func() {
			t, err := roots.NewTable(
				schema.RootDescriptor{Name: "SYSTEM", Kind: schema.KindFlash, PartitionName: "system", MountPoint: "/system"},
				schema.RootDescriptor{Name: "TMP", MountPoint: "/tmp"},
			)
			Expect(err).ToNot(HaveOccurred())

			d, err := t.Lookup("SYSTEM:lib/modules")
			Expect(err).ToNot(HaveOccurred())
			Expect(d.PartitionName).To(Equal("system"))

			_, err = t.Lookup("SYS:")
			Expect(err).To(MatchError(cnst.ErrUnknownRoot))
			_, err = t.Lookup("SYSTEM")
			Expect(err).To(MatchError(cnst.ErrUnknownRoot))

			Expect(t.Roots()).To(HaveLen(2))
			Expect(t.Roots()[0].Name).To(Equal("SYSTEM"))
			Expect(t.Roots()[1].Name).To(Equal("TMP"))
		})
		It("reports every invalid descriptor at once", func() {
			_, err := roots.NewTable(
				schema.RootDescriptor{Name: "CACHE", Kind: schema.KindFlash, PartitionName: "cache"},
				schema.RootDescriptor{Name: "CACHE", Kind: schema.KindFlash, PartitionName: "cache"},
				schema.RootDescriptor{Name: "DATA", Kind: schema.KindFlash},
				schema.RootDescriptor{Name: "SDCARD", Kind: schema.KindBlock, Device: "mmcblk0p1"},
				schema.RootDescriptor{Name: "A:B"},
				schema.RootDescriptor{Name: "REL", MountPoint: "data"},
				schema.RootDescriptor{},
			)
			Expect(err).To(HaveOccurred())
			merr, ok := err.(*multierror.Error)
			Expect(ok).To(BeTrue())
			Expect(merr.Errors).To(HaveLen(6))
		})
	})
})
