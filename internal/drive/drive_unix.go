//go:build linux

package drive

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bismurphy/redumper/internal/drive/mmc"
)

// sgIOHeader mirrors Linux's struct sg_io_hdr (relevant fields only) for
// the generic SCSI passthrough ioctl, SG_IO.
type sgIOHeader struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

const (
	sgIOCode      = 0x2285
	sgDxferNone   = -1
	sgDxferToDev  = -2
	sgDxferFromDev = -3
	sgInterfaceID = 'S'
)

// UnixHandle is a Handle backed by a Linux SCSI generic device
// (/dev/sg*), issuing the CDBs built in package mmc via SG_IO.
type UnixHandle struct {
	f *os.File
}

// OpenUnix opens a SCSI generic device path (e.g. "/dev/sg1").
func OpenUnix(path string) (*UnixHandle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &UnixHandle{f: f}, nil
}

func (u *UnixHandle) sgio(cdb []byte, data []byte, fromDevice bool) error {
	dir := int32(sgDxferFromDev)
	if !fromDevice {
		dir = sgDxferToDev
	}
	if len(data) == 0 {
		dir = sgDxferNone
	}
	sense := make([]byte, 32)
	hdr := sgIOHeader{
		interfaceID:    sgInterfaceID,
		dxferDirection: dir,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		dxferLen:       uint32(len(data)),
		timeout:        30000,
	}
	if len(data) > 0 {
		hdr.dxferp = uintptr(unsafe.Pointer(&data[0]))
	}
	hdr.cmdp = uintptr(unsafe.Pointer(&cdb[0]))
	hdr.sbp = uintptr(unsafe.Pointer(&sense[0]))

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, u.f.Fd(), uintptr(sgIOCode), uintptr(unsafe.Pointer(&hdr)))
	if errno != 0 {
		return fmt.Errorf("drive: SG_IO: %w", errno)
	}
	if hdr.status != 0 || hdr.hostStatus != 0 || hdr.driverStatus != 0 {
		return fmt.Errorf("drive: SCSI error status=%d host=%d driver=%d", hdr.status, hdr.hostStatus, hdr.driverStatus)
	}
	return nil
}

func (u *UnixHandle) Inquiry() (mmc.InquiryData, error) {
	buf := make([]byte, 36)
	if err := u.sgio(mmc.BuildInquiry(), buf, true); err != nil {
		return mmc.InquiryData{}, err
	}
	return mmc.ParseInquiry(buf), nil
}

func (u *UnixHandle) ReadTOC() ([]byte, error) {
	return u.readTOC(mmc.TOCFormatShort)
}

func (u *UnixHandle) ReadFullTOC() ([]byte, error) {
	return u.readTOC(mmc.TOCFormatFull)
}

func (u *UnixHandle) readTOC(format byte) ([]byte, error) {
	const allocLen = 4096
	buf := make([]byte, allocLen)
	cdb := mmc.BuildReadTOC(format, allocLen)
	if err := u.sgio(cdb, buf, true); err != nil {
		return nil, err
	}
	return buf, nil
}

func (u *UnixHandle) ReadCDText() ([]byte, error) {
	return u.readTOC(0x05)
}

func (u *UnixHandle) ReadRaw(method ReadMethod, layout Layout, lba, count int) ([]byte, error) {
	buf := make([]byte, layout.Size*count)
	var cdb []byte
	switch method {
	case ReadMethodD8:
		cdb = mmc.BuildReadCDDA(lba, count, 0)
	case ReadMethodBECDDA:
		cdb = mmc.BuildReadCD(lba, count, mmc.ReadCDFlags{ExpectedType: mmc.SectorTypeCDDA, UserData: true, C2: layout.HasC2(), Subchannel: layout.HasSubcode()})
	default:
		cdb = mmc.BuildReadCD(lba, count, mmc.ReadCDFlags{ExpectedType: mmc.SectorTypeAll, UserData: true, C2: layout.HasC2(), Subchannel: layout.HasSubcode()})
	}
	if err := u.sgio(cdb, buf, true); err != nil {
		return nil, fmt.Errorf("drive: read lba %d count %d: %w", lba, count, err)
	}
	return buf, nil
}

func (u *UnixHandle) FlushCache() error {
	cdb := []byte{0x35, 0, 0, 0, 0, 0, 0, 0, 0, 0} // SYNCHRONIZE CACHE(10)
	return u.sgio(cdb, nil, false)
}

func (u *UnixHandle) Close() error {
	return u.f.Close()
}
