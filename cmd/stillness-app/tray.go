package main

import (
	"bytes"
	"encoding/binary"
	"runtime"

	"github.com/energye/systray"

	"github.com/Mavwarf/stillness/internal/icon"
	"github.com/Mavwarf/stillness/internal/session"
)

// runTray starts the system tray icon. systray.Run blocks until Quit, so
// call it in its own goroutine.
func runTray(app *App) {
	// The hidden window systray creates and its message loop must share
	// one OS thread.
	runtime.LockOSThread()
	systray.Run(func() { onTrayReady(app) }, func() {})
}

// pngToICO wraps PNG bytes in a single-entry ICO container, which
// Windows LoadImage(IMAGE_ICON) requires.
func pngToICO(png []byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint16(0)) // reserved
	binary.Write(buf, binary.LittleEndian, uint16(1)) // type: icon
	binary.Write(buf, binary.LittleEndian, uint16(1)) // image count

	buf.WriteByte(0) // width (0 = 256)
	buf.WriteByte(0) // height (0 = 256)
	buf.WriteByte(0) // palette size
	buf.WriteByte(0) // reserved
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(32))
	binary.Write(buf, binary.LittleEndian, uint32(len(png)))
	binary.Write(buf, binary.LittleEndian, uint32(6+16))

	buf.Write(png)
	return buf.Bytes()
}

func trayIcon() []byte {
	data, err := icon.PNG(256)
	if err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return pngToICO(data)
	}
	return data
}

func toggleTitle(s session.State) string {
	if s == session.Running {
		return "Stop session"
	}
	return "Start session"
}

func onTrayReady(app *App) {
	systray.SetIcon(trayIcon())
	systray.SetTooltip("stillness")
	systray.SetOnDClick(func(menu systray.IMenu) { app.ShowWindow() })

	m := app.engine.Machine
	mToggle := systray.AddMenuItem(toggleTitle(m.State()), "Start or stop a session")
	mToggle.Click(app.Toggle)
	m.Subscribe(func(ev session.Event) {
		mToggle.SetTitle(toggleTitle(m.State()))
	})

	mPreview := systray.AddMenuItem("Preview bell", "Ring the bell once")
	mPreview.Click(app.Preview)

	systray.AddSeparator()

	mOpen := systray.AddMenuItem("Open", "Show the stillness window")
	mOpen.Click(app.ShowWindow)

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit", "Exit stillness")
	mQuit.Click(app.quit)
}
