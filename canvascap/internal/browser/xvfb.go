// CLAUDE:SUMMARY Starts and stops the Xvfb virtual display used by headful capture mode.
package browser

import (
	"fmt"
	"os/exec"
	"time"
)

// startXvfb launches an Xvfb virtual display sized to hold the browser window.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}

	display := m.cfg.XvfbDisplay
	cmd := exec.Command("Xvfb", display, "-screen", "0", xvfbScreen(m.cfg.WindowWidth, m.cfg.WindowHeight), "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	m.xvfb = cmd

	time.Sleep(500 * time.Millisecond)

	m.cfg.Logger.Info("browser: xvfb started", "display", display, "pid", cmd.Process.Pid)
	return nil
}

// stopXvfb kills the Xvfb process if running.
func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		m.xvfb.Process.Kill()
		m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: xvfb stopped")
	m.xvfb = nil
}

// xvfbScreen returns the Xvfb screen geometry: at least 1920x1080 and never
// smaller than the window plus browser chrome.
func xvfbScreen(w, h int) string {
	sw, sh := max(1920, w), max(1080, h+200)
	return fmt.Sprintf("%dx%dx24", sw, sh)
}
