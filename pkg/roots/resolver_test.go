package roots_test

import (
	"strings"
	"testing/fstest"

	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/kairos-io/recoveryroots/pkg/roots"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolver", func() {
	var r *roots.Resolver
	var archive fstest.MapFS

	BeforeEach(func() {
		t, err := roots.NewTable(
			schema.RootDescriptor{Name: "SYSTEM", Kind: schema.KindFlash, PartitionName: "system", MountPoint: "/system", Filesystem: cnst.FsYaffs2},
			schema.RootDescriptor{Name: "MISC", Kind: schema.KindFlash, PartitionName: "misc", Filesystem: cnst.FsRaw},
			schema.RootDescriptor{Name: "SDEXT", Kind: schema.KindBlock, Device: "/dev/block/mmcblk0p2"},
			schema.RootDescriptor{Name: "PKG", Kind: schema.KindPackage, Filesystem: cnst.FsPackage},
		)
		Expect(err).ToNot(HaveOccurred())
		r = roots.NewResolver(t)
		archive = fstest.MapFS{"app/classes.dex": &fstest.MapFile{Data: []byte("dex")}}
	})

	Context("TranslateRootPath", func() {
		It("joins the mount point with the relative path", func() {
			p, err := r.TranslateRootPath("SYSTEM:lib")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal("/system/lib"))

			p, err = r.TranslateRootPath("SYSTEM:")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal("/system"))

			p, err = r.TranslateRootPath("SYSTEM:/lib//modules/")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal("/system/lib/modules"))
		})
		It("does not climb out of the root", func() {
			p, err := r.TranslateRootPath("SYSTEM:../etc/passwd")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal("/system/etc/passwd"))
		})
		It("uses the device path for roots without mount point", func() {
			p, err := r.TranslateRootPath("SDEXT:")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal("/dev/block/mmcblk0p2"))

			_, err = r.TranslateRootPath("MISC:")
			Expect(err).To(MatchError(cnst.ErrNotFound))
		})
		It("fails on unknown and package roots", func() {
			_, err := r.TranslateRootPath("VENDOR:lib")
			Expect(err).To(MatchError(cnst.ErrNotFound))
			Expect(err).To(MatchError(cnst.ErrUnknownRoot))
			Expect(roots.IsNotFound(err)).To(BeTrue())

			r.RegisterPackageRoot(archive, "app")
			_, err = r.TranslateRootPath("PKG:classes.dex")
			Expect(err).To(MatchError(cnst.ErrNotFound))
		})
	})

	Context("TranslateRootPathTo", func() {
		It("fills the buffer", func() {
			buf := make([]byte, 16)
			n, err := r.TranslateRootPathTo("SYSTEM:lib", buf)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(buf[:n])).To(Equal("/system/lib"))

			exact := make([]byte, len("/system/lib"))
			n, err = r.TranslateRootPathTo("SYSTEM:lib", exact)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(len(exact)))
		})
		It("never truncates", func() {
			buf := make([]byte, 8)
			n, err := r.TranslateRootPathTo("SYSTEM:lib/modules", buf)
			Expect(err).To(MatchError(cnst.ErrBufferTooSmall))
			Expect(n).To(Equal(0))
			Expect(buf).To(Equal(make([]byte, 8)))
		})
		It("bounds the string form too", func() {
			_, err := r.TranslateRootPath("SYSTEM:" + strings.Repeat("a", cnst.MaxPathLen))
			Expect(err).To(MatchError(cnst.ErrBufferTooSmall))
		})
	})

	Context("package root", func() {
		It("is not found before registration", func() {
			_, _, err := r.TranslatePackageRootPath("PKG:classes.dex")
			Expect(err).To(MatchError(cnst.ErrNotFound))

			_, err = r.Lookup("PKG:")
			Expect(err).To(MatchError(cnst.ErrUnknownRoot))
		})
		It("translates into the archive once registered", func() {
			r.RegisterPackageRoot(archive, "app")
			Expect(r.IsPackageRootPath("PKG:classes.dex")).To(BeTrue())
			Expect(r.IsPackageRootPath("SYSTEM:lib")).To(BeFalse())

			h, p, err := r.TranslatePackageRootPath("PKG:classes.dex")
			Expect(err).ToNot(HaveOccurred())
			Expect(h).To(Equal(archive))
			Expect(p).To(Equal("app/classes.dex"))

			_, p, err = r.TranslatePackageRootPath("PKG:")
			Expect(err).ToNot(HaveOccurred())
			Expect(p).To(Equal("app"))

			d, err := r.Lookup("PKG:")
			Expect(err).ToNot(HaveOccurred())
			Expect(d.Kind).To(Equal(schema.KindPackage))
		})
		It("uses the latest registration", func() {
			r.RegisterPackageRoot(archive, "app")
			other := fstest.MapFS{}
			r.RegisterPackageRoot(other, "")

			h, p, err := r.TranslatePackageRootPath("PKG:classes.dex")
			Expect(err).ToNot(HaveOccurred())
			Expect(h).To(Equal(other))
			Expect(p).To(Equal("classes.dex"))
		})
		It("rejects other roots", func() {
			r.RegisterPackageRoot(archive, "app")
			_, _, err := r.TranslatePackageRootPath("SYSTEM:lib")
			Expect(err).To(MatchError(cnst.ErrNotFound))
		})
	})

	Context("Resolve", func() {
		It("returns exactly one form", func() {
			r.RegisterPackageRoot(archive, "app")

			res, err := r.Resolve("PKG:classes.dex")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.IsPackage()).To(BeTrue())
			Expect(res.Root).To(Equal("PKG"))
			Expect(res.Path).To(Equal("app/classes.dex"))

			res, err = r.Resolve("SYSTEM:bin/sh")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.IsPackage()).To(BeFalse())
			Expect(res.Path).To(Equal("/system/bin/sh"))
		})
	})
})
