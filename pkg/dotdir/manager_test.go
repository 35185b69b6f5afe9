package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kosar/responses-api/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("uses the override directory when provided", func() {
			override := filepath.Join(tmpDir, "custom")

			m := dotdir.NewManager()
			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(Equal(override))
		})

		It("creates the override directory if it does not exist", func() {
			override := filepath.Join(tmpDir, "nested", "custom")

			m := dotdir.NewManager()
			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns an absolute path for a relative override", func() {
			cwd, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				os.Chdir(cwd)
			})

			Expect(os.Chdir(tmpDir)).To(Succeed())

			m := dotdir.NewManager()
			target, err := m.Target("relative-dir")
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.IsAbs(target)).To(BeTrue())
		})

		It("prefers a local .respchat/ dir over the home dir", func() {
			cwd, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				os.Chdir(cwd)
			})

			local := filepath.Join(tmpDir, ".respchat")
			Expect(os.MkdirAll(local, 0o755)).To(Succeed())
			Expect(os.Chdir(tmpDir)).To(Succeed())

			m := dotdir.NewManager()
			target, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Base(target)).To(Equal(".respchat"))
			Expect(filepath.Dir(target)).To(Equal(mustEvalSymlinks(tmpDir)))
		})
	})
})

// mustEvalSymlinks resolves symlinks so paths compare cleanly on systems
// where the temp dir is symlinked (e.g. /tmp on macOS).
func mustEvalSymlinks(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	Expect(err).NotTo(HaveOccurred())
	return resolved
}
