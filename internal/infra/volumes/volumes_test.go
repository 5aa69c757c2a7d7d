package volumes

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
)

func fakePartitions(parts ...disk.PartitionStat) partitionFunc {
	return func(ctx context.Context, all bool) ([]disk.PartitionStat, error) {
		return parts, nil
	}
}

func TestMountsFiltersByRoot(t *testing.T) {
	l := &Lister{
		Roots: []string{"/media"},
		partitions: fakePartitions(
			disk.PartitionStat{Device: "/dev/nvme0n1p2", Mountpoint: "/"},
			disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: "/media/me/CARD"},
			disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: "/media/me/CARD"},
			disk.PartitionStat{Device: "/dev/sdc1", Mountpoint: "/mediabox"},
			disk.PartitionStat{Device: "/dev/sdd1", Mountpoint: "/media"},
		),
	}

	mounts, err := l.Mounts(context.Background())
	if err != nil {
		t.Fatalf("mounts: %v", err)
	}
	if len(mounts) != 1 || mounts[0] != "/media/me/CARD" {
		t.Fatalf("unexpected mounts %v", mounts)
	}
}

func TestMountsAcceptsCardMountedOnRoot(t *testing.T) {
	l := &Lister{
		Roots: []string{"/media", "/mnt"},
		partitions: fakePartitions(
			disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: "/mnt"},
			disk.PartitionStat{Device: "/dev/sdc1", Mountpoint: "/media"},
			disk.PartitionStat{Device: "/dev/sdd1", Mountpoint: "/mnt/usb"},
		),
	}

	mounts, err := l.Mounts(context.Background())
	if err != nil {
		t.Fatalf("mounts: %v", err)
	}
	if len(mounts) != 2 || mounts[0] != "/mnt" || mounts[1] != "/mnt/usb" {
		t.Fatalf("unexpected mounts %v", mounts)
	}
}

func TestMountsWithoutRootsSkipsSystem(t *testing.T) {
	l := &Lister{
		partitions: fakePartitions(
			disk.PartitionStat{Mountpoint: "/"},
			disk.PartitionStat{Mountpoint: "/boot/efi"},
			disk.PartitionStat{Mountpoint: "/data/usb"},
		),
	}
	mounts, err := l.Mounts(context.Background())
	if err != nil {
		t.Fatalf("mounts: %v", err)
	}
	if len(mounts) != 1 || mounts[0] != "/data/usb" {
		t.Fatalf("unexpected mounts %v", mounts)
	}
}

func TestMountsPropagatesError(t *testing.T) {
	l := &Lister{partitions: func(ctx context.Context, all bool) ([]disk.PartitionStat, error) {
		return nil, errors.New("no proc")
	}}
	if _, err := l.Mounts(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseLsblk(t *testing.T) {
	out := "/dev/sda disk \n" +
		"/dev/sda1 part /\n" +
		"/dev/sda2 part \n" +
		"/dev/sdb disk \n" +
		"/dev/loop0 loop \n" +
		"/dev/mmcblk0 disk \n" +
		"/dev/mmcblk0p1 part /media/me/CARD\n"

	got := parseLsblk(out)
	want := []string{"/dev/sda2", "/dev/sdb"}
	if len(got) != len(want) {
		t.Fatalf("unexpected devices %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected devices %v", got)
		}
	}
}

func TestHasCardReader(t *testing.T) {
	if !hasCardReader("Bus 001 Device 004: ID 05e3:0743 Genesys Logic, Inc. SD Card Reader") {
		t.Fatalf("expected card reader")
	}
	if hasCardReader("Bus 001 Device 002: ID 046d:c52b Logitech, Inc. Unifying Receiver") {
		t.Fatalf("did not expect card reader")
	}
}
