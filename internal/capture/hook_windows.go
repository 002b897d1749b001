//go:build windows

package capture

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/roach88/a11yoracle/internal/notify"
)

const (
	winEventOutOfContext = 0x0000
	wmQuit               = 0x0012
	pmNoRemove           = 0x0000
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procSetWinEventHook    = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent     = user32.NewProc("UnhookWinEvent")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

type point struct{ x, y int32 }

type msg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

// Callback slots from windows.NewCallback are never released, so one
// trampoline serves every hook and routes by hook handle.
var (
	trampolineOnce sync.Once
	trampoline     uintptr
	routes         sync.Map // hook handle (uintptr) -> notify.Callbacks
)

func winEventProc(hook, event, hwnd, idObject, idChild, thread, timestamp uintptr) uintptr {
	if cb, ok := routes.Load(hook); ok {
		Decode(uint32(event), int32(idObject), int32(idChild), cb.(notify.Callbacks))
	}
	return 0
}

// SystemHook installs out-of-context WinEvent hooks through user32.
//
// Each installation owns a locked OS thread running a message loop; the
// host delivers notifications to that thread.
type SystemHook struct {
	logger *slog.Logger
}

// NewSystemHook returns the native hook.
func NewSystemHook(logger *slog.Logger) (*SystemHook, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("load user32: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	trampolineOnce.Do(func() {
		trampoline = windows.NewCallback(winEventProc)
	})
	return &SystemHook{logger: logger}, nil
}

// Install implements Hook.
//
// A pid can carry one hook per OS process; a second Install for it fails
// with ErrAlreadyAttached until the first is uninstalled.
func (h *SystemHook) Install(pid int, cb notify.Callbacks) (Uninstall, error) {
	if err := systemClaims.claim(pid); err != nil {
		return nil, err
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		systemClaims.release(pid)
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	_ = windows.CloseHandle(proc)

	type started struct {
		tid uint32
		err error
	}
	ready := make(chan started, 1)
	done := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)
		defer systemClaims.release(pid)

		tid := windows.GetCurrentThreadId()

		// Force creation of the thread's message queue before anyone can
		// post WM_QUIT to it.
		var m msg
		procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmNoRemove)

		handle, _, callErr := procSetWinEventHook.Call(
			uintptr(EventConsoleMin), uintptr(EventConsoleMax),
			0, trampoline, uintptr(pid), 0, winEventOutOfContext,
		)
		if handle == 0 {
			ready <- started{err: fmt.Errorf("SetWinEventHook: %w", callErr)}
			return
		}
		routes.Store(handle, cb)
		defer func() {
			procUnhookWinEvent.Call(handle)
			routes.Delete(handle)
		}()

		ready <- started{tid: tid}

		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				return
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		}
	}()

	st := <-ready
	if st.err != nil {
		<-done
		return nil, st.err
	}
	h.logger.Debug("winevent hook installed", "pid", pid, "thread", st.tid)

	return func() error {
		ok, _, err := procPostThreadMessageW.Call(uintptr(st.tid), wmQuit, 0, 0)
		if ok == 0 {
			return fmt.Errorf("PostThreadMessage: %w", err)
		}
		<-done
		return nil
	}, nil
}
