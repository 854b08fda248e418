package alerter

import (
	"fmt"
	"log"
	"strings"

	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/model"
	"github.com/crazyharmony/traf-exercize/internal/report"
)

// Alerter evaluates report snapshots against threshold rules and triggers a
// notification when any rule fires.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
}

// New creates an Alerter. notifier may be nil, in which case triggered rules
// are only logged.
func New(cfg *config.AlerterConfig, notifier model.Notifier) *Alerter {
	return &Alerter{rules: cfg.Rules, notifier: notifier}
}

// Evaluate checks one report against every rule and sends a single
// notification covering all triggered rules.
func (a *Alerter) Evaluate(rep *report.Report) {
	var triggeredMessages []string

	for _, rule := range a.rules {
		var currentValue float64
		var unit string

		switch rule.Metric {
		case "proxy_candidates":
			currentValue = float64(len(rep.ProxyCandidates))
			unit = "macs"
		case "mutual_pairs":
			currentValue = float64(len(rep.MutualPairs))
			unit = "pairs"
		case "total_bytes":
			currentValue = float64(rep.TotalBytes)
			unit = "bytes"
		case "unique_macs":
			currentValue = float64(rep.UniqueMACs)
			unit = "macs"
		case "records_rejected":
			currentValue = float64(rep.RecordsRejected)
			unit = "records"
		default:
			log.Printf("Warning: unknown metric '%s' in alerter rule '%s'", rule.Metric, rule.Name)
			continue
		}

		if check(currentValue, rule.Threshold, rule.Operator) {
			msg := fmt.Sprintf("<h3>Alert: %s</h3>"+
				"<ul>"+
				"<li><b>Metric:</b> <code>%s</code></li>"+
				"<li><b>Condition:</b> <code>%s %.2f</code></li>"+
				"<li><b>Observed Value:</b> <code>%.0f %s</code></li>"+
				"</ul>",
				rule.Name, rule.Metric, rule.Operator, rule.Threshold, currentValue, unit)
			triggeredMessages = append(triggeredMessages, msg)
			log.Printf("Alert '%s' triggered: %s = %.0f %s (%s %.2f)",
				rule.Name, rule.Metric, currentValue, unit, rule.Operator, rule.Threshold)
		}
	}

	if len(triggeredMessages) == 0 {
		return
	}
	if a.notifier == nil {
		return
	}
	body := strings.Join(triggeredMessages, "<br><hr><br>")
	if err := a.notifier.Send("Traffic Analyzer Alert", body); err != nil {
		log.Printf("Error sending alert notification: %v", err)
	}
}

// check compares a value against a threshold based on an operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		log.Printf("Warning: unknown operator '%s' in alerter rule", operator)
		return false
	}
}
