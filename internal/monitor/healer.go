package monitor

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

// healTimeout bounds each remediation command.
const healTimeout = 30 * time.Second

// CommandRunner executes a remediation command. Production uses the OS
// shell; tests stub it.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// healAction is one remediation step: a command plus its arguments.
type healAction struct {
	description string
	name        string
	args        []string
}

// Healer maps signal kinds to remediation actions. Heal never panics or
// returns an error: failures collapse into a false result so a broken
// remediation cannot take down the monitoring loop.
type Healer struct {
	runner  CommandRunner
	actions map[SignalKind][]healAction
}

// NewHealer creates a healer with the built-in remediation registry for the
// current OS. A nil runner selects the real shell.
func NewHealer(runner CommandRunner) *Healer {
	if runner == nil {
		runner = execRunner{}
	}
	return &Healer{
		runner:  runner,
		actions: builtinActions(runtime.GOOS),
	}
}

// Heal runs the remediation actions registered for kind, in order, and
// reports whether all of them succeeded. Unknown kinds return false.
func (h *Healer) Heal(kind SignalKind) bool {
	actions, ok := h.actions[kind]
	if !ok || len(actions) == 0 {
		log.Debugf("No remediation registered for signal kind %q", kind)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), healTimeout)
	defer cancel()

	for _, action := range actions {
		log.Infof("Running remediation | kind=%s action=%q", kind, action.description)
		if err := h.runner.Run(ctx, action.name, action.args...); err != nil {
			log.Warnf("Remediation failed | kind=%s action=%q err=%v", kind, action.description, err)
			return false
		}
	}
	return true
}

// CanHeal reports whether any remediation is registered for kind.
func (h *Healer) CanHeal(kind SignalKind) bool {
	return len(h.actions[kind]) > 0
}

func builtinActions(goos string) map[SignalKind][]healAction {
	switch goos {
	case "linux":
		return map[SignalKind][]healAction{
			SignalNetwork: {
				{"restart network stack", "systemctl", []string{"restart", "NetworkManager"}},
				{"flush DNS cache", "resolvectl", []string{"flush-caches"}},
			},
			SignalCPU: {
				{"kill top CPU consumer", "sh", []string{"-c", "kill -9 $(ps -eo pid --sort=-%cpu --no-headers | head -1)"}},
			},
			SignalMemory: {
				{"drop filesystem caches", "sh", []string{"-c", "sync && echo 3 > /proc/sys/vm/drop_caches"}},
			},
			SignalStorage: {
				{"clear stale temp files", "sh", []string{"-c", "find /tmp -type f -atime +1 -delete"}},
			},
			SignalPower: {
				{"switch to power-saver profile", "powerprofilesctl", []string{"set", "power-saver"}},
			},
		}
	case "darwin":
		return map[SignalKind][]healAction{
			SignalNetwork: {
				{"cycle Wi-Fi", "sh", []string{"-c", "networksetup -setairportpower en0 off && networksetup -setairportpower en0 on"}},
				{"flush DNS cache", "dscacheutil", []string{"-flushcache"}},
			},
			SignalCPU: {
				{"kill top CPU consumer", "sh", []string{"-c", "kill -9 $(ps -eo pid -r | sed -n 2p)"}},
			},
			SignalMemory: {
				{"purge inactive memory", "purge", nil},
			},
			SignalStorage: {
				{"clear stale temp files", "sh", []string{"-c", "find /tmp -type f -atime +1 -delete"}},
			},
		}
	case "windows":
		return map[SignalKind][]healAction{
			SignalNetwork: {
				{"flush DNS cache", "ipconfig", []string{"/flushdns"}},
				{"renew DHCP lease", "ipconfig", []string{"/renew"}},
			},
			SignalStorage: {
				{"clear temp directory", "cmd", []string{"/C", "del /q /f %TEMP%\\*"}},
			},
		}
	default:
		return map[SignalKind][]healAction{}
	}
}
