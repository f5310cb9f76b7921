package monitor

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	log "github.com/sirupsen/logrus"
)

// rule is one compiled alert condition.
type rule struct {
	condition string
	program   *vm.Program
	message   string
	code      int
}

// ruleEnv exposes a sample to expr conditions under operator-friendly names.
func ruleEnv(s Sample) map[string]interface{} {
	return map[string]interface{}{
		"cpu":           s.CPUPercent,
		"memory":        s.MemoryPercent,
		"disk":          s.DiskPercent,
		"upload_kbps":   s.UploadKBps,
		"download_kbps": s.DownloadKBps,
		"online":        s.Online,
		"battery":       s.BatteryPercent,
		"on_battery":    s.OnBattery,
		"has_battery":   s.HasBattery,
	}
}

// compileRules builds the rule set: fixed threshold rules from the config,
// then any operator-defined extras. A custom rule that fails to compile is
// skipped with a warning rather than failing startup.
func compileRules(cfg Config) ([]rule, error) {
	builtin := []RuleConfig{
		{
			Condition: "!online",
			Message:   "Network appears to be down",
			Code:      CodeNetwork,
		},
		{
			Condition: fmt.Sprintf("has_battery && on_battery && battery < %g", cfg.BatteryThreshold),
			Message:   fmt.Sprintf("Battery below %.0f%% and discharging", cfg.BatteryThreshold),
			Code:      CodePower,
		},
		{
			Condition: fmt.Sprintf("cpu > %g", cfg.CPUThreshold),
			Message:   fmt.Sprintf("CPU usage above %.0f%%", cfg.CPUThreshold),
			Code:      CodeCPU,
		},
		{
			Condition: fmt.Sprintf("memory > %g", cfg.MemoryThreshold),
			Message:   fmt.Sprintf("Memory usage above %.0f%%", cfg.MemoryThreshold),
			Code:      CodeMemory,
		},
		{
			Condition: fmt.Sprintf("disk > %g", cfg.DiskThreshold),
			Message:   fmt.Sprintf("Disk usage above %.0f%%", cfg.DiskThreshold),
			Code:      CodeStorage,
		},
	}

	env := ruleEnv(Sample{})
	var rules []rule

	for _, rc := range builtin {
		program, err := expr.Compile(rc.Condition, expr.Env(env), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile condition '%s': %w", rc.Condition, err)
		}
		rules = append(rules, rule{condition: rc.Condition, program: program, message: rc.Message, code: rc.Code})
	}

	for _, rc := range cfg.Rules {
		program, err := expr.Compile(rc.Condition, expr.Env(env), expr.AsBool())
		if err != nil {
			log.Warnf("Skipping alert rule with invalid condition '%s': %v", rc.Condition, err)
			continue
		}
		rules = append(rules, rule{condition: rc.Condition, program: program, message: rc.Message, code: rc.Code})
	}

	return rules, nil
}

// evaluate runs every rule against the sample and returns the breaches.
func evaluate(rules []rule, sample Sample) []Signal {
	env := ruleEnv(sample)
	var signals []Signal

	for _, r := range rules {
		output, err := expr.Run(r.program, env)
		if err != nil {
			log.Debugf("Alert rule '%s' failed to run: %v", r.condition, err)
			continue
		}
		breached, ok := output.(bool)
		if !ok || !breached {
			continue
		}
		signals = append(signals, Signal{
			Kind:    KindForCode(r.code),
			Message: r.message,
			Code:    r.code,
		})
	}

	return signals
}
