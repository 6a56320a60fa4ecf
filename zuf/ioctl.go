// File: zuf/ioctl.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ioctl request numbers of the zuf control device, encoded the way the
// kernel's _IOWR macro does: dir(2) | size(14) | magic(8) | nr(8).

package zuf

import "unsafe"

const iocMagic = 'Z'

const (
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | iocMagic<<8 | nr
}

var (
	IocRegisterFS = ioc(iocRead|iocWrite, 10, unsafe.Sizeof(RegisterFS{}))
	IocNumaMap    = ioc(iocRead|iocWrite, 11, unsafe.Sizeof(NumaMap{}))
	IocZtInit     = ioc(iocRead|iocWrite, 12, unsafe.Sizeof(ZtInit{}))
	IocGrabPmem   = ioc(iocRead|iocWrite, 13, unsafe.Sizeof(GrabPmem{}))
	IocAllocBuf   = ioc(iocRead|iocWrite, 14, unsafe.Sizeof(AllocBuffer{}))
	IocWaitOp     = ioc(iocRead|iocWrite, 15, unsafe.Sizeof(Hdr{}))
	IocRecvMount  = ioc(iocRead|iocWrite, 16, unsafe.Sizeof(Hdr{}))
	IocBreakAll   = ioc(iocWrite, 17, 0)
)
