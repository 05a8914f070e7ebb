package build_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/domain/errors"
)

func TestPatchStage(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/patch.yml", `
kernel/liteos_a:
  - vendor/acme/p1/patches/0001-kernel.patch
  - vendor/acme/p1/patches/0002-kernel.patch
foo/x:
  - vendor/acme/p1/patches/0001-x.patch
`)

	outcome, err := f.builder.Build(context.Background(), f.cfg, build.Request{Patch: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"patch", "gn", "ninja", "package"}, outcome.Report.Stages())

	require.Len(t, f.commands.Invocations, 5)
	assert.Equal(t, []string{
		"git", "-C", f.tree.Path("kernel", "liteos_a"), "apply", f.tree.Path("vendor", "acme", "p1", "patches", "0001-kernel.patch"),
	}, f.commands.Invocations[0].Args)
	assert.Equal(t, f.tree.Path("vendor", "acme", "p1", "patches", "0002-kernel.patch"), f.commands.Invocations[1].Args[4])
	assert.Equal(t, f.tree.Path("foo", "x"), f.commands.Invocations[2].Args[2])
	assert.Equal(t, []string{"git", "git", "git", "gn", "ninja"}, f.commands.Tools())
}

func TestPatchStageMissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.builder.Build(context.Background(), f.cfg, build.Request{Patch: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"gn", "ninja"}, f.commands.Tools())
}

func TestPatchStageMalformed(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/patch.yml", "- just\n- a list\n")

	_, err := f.builder.Build(context.Background(), f.cfg, build.Request{Patch: true})
	assert.True(t, errors.IsCode(err, errors.CodeManifest))
}

func TestPackageStage(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/fs.yml", `
- fs_dir_name: rootfs
  fs_make_cmd:
    - ${root_path}/build/lite/make_rootfs/rootfsimg_linux.sh ${fs_dir} ext4
  fs_attr:
    dmverity_enable:
      - ${root_path}/build/lite/make_rootfs/dmverity_linux.sh ${out_path} ${fs_dir}
    tee_enable:
      - echo tee
- fs_dir_name: userfs
  fs_make_cmd:
    - ${root_path}/build/lite/make_rootfs/rootfsimg_linux.sh ${fs_dir} vfat 52428800
`)

	_, err := f.builder.Build(context.Background(), f.cfg, build.Request{Dmverity: true})
	require.NoError(t, err)

	require.Len(t, f.commands.Invocations, 5)
	out := f.outPath()
	assert.Equal(t, []string{
		f.tree.Path("build", "lite", "make_rootfs", "rootfsimg_linux.sh"), out + "/rootfs", "ext4",
	}, f.commands.Invocations[2].Args)
	assert.Equal(t, []string{
		f.tree.Path("build", "lite", "make_rootfs", "dmverity_linux.sh"), out, out + "/rootfs",
	}, f.commands.Invocations[3].Args)
	assert.Equal(t, []string{
		f.tree.Path("build", "lite", "make_rootfs", "rootfsimg_linux.sh"), out + "/userfs", "vfat", "52428800",
	}, f.commands.Invocations[4].Args)
}

func TestPackageStageFailure(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/fs.yml", "- fs_dir_name: rootfs\n  fs_make_cmd:\n    - mkfs.vfat ${fs_dir}\n")
	f.commands.ExitCodes = map[string]int{"mkfs.vfat": 1}

	outcome, err := f.builder.Build(context.Background(), f.cfg, build.Request{})
	_, ok := errors.AsToolInvocation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"gn", "ninja", "package"}, outcome.Report.Stages())
}

func TestPackageStageQuotedCommand(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/fs.yml", "- fs_dir_name: rootfs\n  fs_make_cmd:\n    - sh -c \"mkfs.jffs2 -d ${fs_dir} -o out.img\"\n")

	_, err := f.builder.Build(context.Background(), f.cfg, build.Request{})
	require.NoError(t, err)

	require.Len(t, f.commands.Invocations, 3)
	assert.Equal(t, []string{
		"sh", "-c", "mkfs.jffs2 -d " + f.outPath() + "/rootfs -o out.img",
	}, f.commands.Invocations[2].Args)
}

func TestPackageStageUnterminatedQuote(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/fs.yml", "- fs_dir_name: rootfs\n  fs_make_cmd:\n    - sh -c \"mkfs.jffs2 ${fs_dir}\n")

	_, err := f.builder.Build(context.Background(), f.cfg, build.Request{})
	assert.True(t, errors.IsCode(err, errors.CodeManifest))
	assert.Equal(t, []string{"gn", "ninja"}, f.commands.Tools())
}

func TestPackageStageSkippedForGnOnly(t *testing.T) {
	f := newFixture(t)
	f.tree.WriteFile("vendor/acme/p1/fs.yml", "- fs_dir_name: rootfs\n  fs_make_cmd:\n    - mkfs.vfat ${fs_dir}\n")

	outcome, err := f.builder.Build(context.Background(), f.cfg, build.Request{GnOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"gn"}, outcome.Report.Stages())
	assert.Equal(t, []string{"gn"}, f.commands.Tools())
}

func TestSelectProductUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := build.SelectProduct(f.cfg, "p9", "acme")
	assert.True(t, errors.IsCode(err, errors.CodeManifest))

	_, err = build.SelectProduct(config.Config{RootPath: t.TempDir()}, "p1", "acme")
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
}
