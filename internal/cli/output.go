package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output печатает результаты команд: таблицы для чтения человеком,
// JSON (--json) для скриптов. Данные идут в stdout, служебные
// сообщения — в stderr, чтобы вывод можно было передавать по пайпу.
type Output struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewOutput создаёт Output. При jsonMode=true данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// Run печатает один run.
func (o *Output) Run(run *RunResponse) {
	if o.jsonMode {
		o.json(run)
		return
	}

	errMsg := ""
	if run.Error != nil {
		errMsg = run.Error.Message
	}

	o.table(
		[]string{"ID", "WORKFLOW", "STATUS", "STEP", "DURATION_MS", "ERROR"},
		[][]string{{run.ID, run.WorkflowID, run.Status, run.CurrentStepID, fmt.Sprintf("%d", run.DurationMS), errMsg}},
	)
}

// Plugins печатает список зарегистрированных типов узлов.
func (o *Output) Plugins(plugins []PluginResponse) {
	if o.jsonMode {
		o.json(plugins)
		return
	}

	rows := make([][]string, len(plugins))
	for i, p := range plugins {
		rows[i] = []string{
			p.ID, p.Name, p.Category,
			fmt.Sprintf("%d", len(p.Inputs)),
			fmt.Sprintf("%d", len(p.Outputs)),
		}
	}
	o.table([]string{"ID", "NAME", "CATEGORY", "INPUTS", "OUTPUTS"}, rows)
}

// Schedules печатает список schedules.
func (o *Output) Schedules(schedules []ScheduleResponse) {
	if o.jsonMode {
		o.json(schedules)
		return
	}
	o.scheduleTable(schedules)
}

// Schedule печатает один schedule.
func (o *Output) Schedule(sched *ScheduleResponse) {
	if o.jsonMode {
		o.json(sched)
		return
	}
	o.scheduleTable([]ScheduleResponse{*sched})
}

func (o *Output) scheduleTable(schedules []ScheduleResponse) {
	rows := make([][]string, len(schedules))
	for i, s := range schedules {
		rows[i] = []string{
			s.ID, s.WorkflowID, s.CronExpr, s.Timezone,
			fmt.Sprintf("%t", s.Enabled), s.NextDueAt,
		}
	}
	o.table([]string{"ID", "WORKFLOW", "CRON", "TZ", "ENABLED", "NEXT_DUE"}, rows)
}

// Hook печатает webhook-привязку.
func (o *Output) Hook(hook *HookResponse) {
	if o.jsonMode {
		o.json(hook)
		return
	}
	o.table(
		[]string{"HOOK_ID", "WORKFLOW", "PATH"},
		[][]string{{hook.HookID, hook.WorkflowID, hook.Path}},
	)
}

// Success печатает сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.stderr, msg)
}

func (o *Output) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func (o *Output) json(v any) {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
