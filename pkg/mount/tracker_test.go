package mount_test

import (
	"errors"

	cmount "github.com/containerd/containerd/mount"
	cnst "github.com/kairos-io/recoveryroots/internal/constants"
	"github.com/kairos-io/recoveryroots/pkg/mount"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4"
	"github.com/twpayne/go-vfs/v4/vfst"
)

const mountinfo = `22 1 0:21 / /cache rw,nodev,noatime - yaffs2 /dev/block/mtdblock4 rw
23 1 179:3 / /data rw,relatime shared:1 - ext4 /dev/block/mmcblk0p3 rw,errors=continue
`

type fakeUnmounter struct {
	calls []string
	err   error
}

func (f *fakeUnmounter) Unmount(target string) error {
	f.calls = append(f.calls, target)
	return f.err
}

type fakeMounter struct {
	mounts []cmount.Mount
	err    error
}

func (f *fakeMounter) Mount(m cmount.Mount, target string) error {
	m.Target = target
	f.mounts = append(f.mounts, m)
	return f.err
}

type failingScanner struct{}

func (failingScanner) Scan() (schema.MountSnapshot, error) {
	return schema.MountSnapshot{}, errors.New("no /proc")
}

var _ = Describe("Tracker", func() {
	var fs vfs.FS
	var cleanup func()
	var unmounter *fakeUnmounter
	var mounter *fakeMounter
	var tracker *mount.Tracker

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/proc/1/mountinfo": mountinfo,
		})
		Expect(err).ToNot(HaveOccurred())
		unmounter = &fakeUnmounter{}
		mounter = &fakeMounter{}
		tracker = mount.NewTrackerWith(mount.FileScanner{FS: fs, Path: "/proc/1/mountinfo"}, unmounter, mounter)
	})
	AfterEach(func() {
		cleanup()
	})

	Context("scanning", func() {
		It("reads the mount table", func() {
			s, err := tracker.Scan()
			Expect(err).ToNot(HaveOccurred())
			Expect(s.Volumes).To(HaveLen(2))

			v, ok := s.FindByMountPoint("/data")
			Expect(ok).To(BeTrue())
			Expect(v.Device).To(Equal("/dev/block/mmcblk0p3"))
			Expect(v.Filesystem).To(Equal("ext4"))
			Expect(v.Flags).To(Equal("rw,relatime,rw,errors=continue"))
		})
		It("rescans on every question", func() {
			Expect(tracker.IsMounted("/system")).To(BeFalse())
			Expect(fs.WriteFile("/proc/1/mountinfo", []byte(mountinfo+"24 1 0:22 / /system ro - yaffs2 /dev/block/mtdblock3 ro\n"), 0644)).To(Succeed())
			Expect(tracker.IsMounted("/system")).To(BeTrue())
		})
		It("wraps scan failures", func() {
			t := mount.NewTrackerWith(failingScanner{}, unmounter, mounter)
			_, err := t.IsMounted("/cache")
			Expect(err).To(MatchError(cnst.ErrScan))

			t = mount.NewTrackerWith(mount.FileScanner{FS: fs, Path: "/missing"}, unmounter, mounter)
			_, err = t.Scan()
			Expect(err).To(MatchError(cnst.ErrScan))
		})
	})

	Context("unmounting", func() {
		It("calls the unmount primitive", func() {
			Expect(tracker.Unmount("/cache")).To(Succeed())
			Expect(unmounter.calls).To(Equal([]string{"/cache"}))
		})
		It("reports busy devices", func() {
			unmounter.err = errors.New("device or resource busy")
			err := tracker.Unmount("/cache")
			Expect(err).To(MatchError(cnst.ErrUnmountFailed))
			Expect(err.Error()).To(ContainSubstring("busy"))
		})
	})

	Context("mounting", func() {
		It("mounts a root with the default options first", func() {
			d := schema.RootDescriptor{Name: "SYSTEM", Kind: schema.KindFlash, PartitionName: "system", MountPoint: "/system", Filesystem: "yaffs2", FilesystemOptions: "ro,noatime"}
			op := mount.RootOperation(fs, d, "/dev/block/mtdblock3")
			Expect(op.FstabEntry().File).To(Equal("/system"))

			Expect(tracker.Mount(op)).To(Succeed())
			Expect(mounter.mounts).To(HaveLen(1))
			Expect(mounter.mounts[0].Source).To(Equal("/dev/block/mtdblock3"))
			Expect(mounter.mounts[0].Target).To(Equal("/system"))
			Expect(mounter.mounts[0].Type).To(Equal("yaffs2"))
			Expect(mounter.mounts[0].Options).To(Equal([]string{"noatime", "nodev", "nodiratime", "ro"}))

			fi, err := fs.Stat("/system")
			Expect(err).ToNot(HaveOccurred())
			Expect(fi.IsDir()).To(BeTrue())
		})
		It("does not mount twice", func() {
			d := schema.RootDescriptor{Name: "CACHE", Kind: schema.KindFlash, PartitionName: "cache", MountPoint: "/cache", Filesystem: "yaffs2"}
			err := tracker.Mount(mount.RootOperation(fs, d, "/dev/block/mtdblock4"))
			Expect(err).To(MatchError(cnst.ErrAlreadyMounted))
			Expect(mounter.mounts).To(BeEmpty())
		})
		It("wraps mount failures", func() {
			mounter.err = errors.New("no such device")
			d := schema.RootDescriptor{Name: "SDCARD", Kind: schema.KindBlock, Device: "/dev/block/mmcblk0p1", MountPoint: "/sdcard", Filesystem: "vfat"}
			err := tracker.Mount(mount.RootOperation(fs, d, d.Device))
			Expect(err).To(MatchError(cnst.ErrMountFailed))
		})
	})
})
