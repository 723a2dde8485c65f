package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one message, or nil when there are none.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("config validation failed:\n- %s", strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg plus any problems.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.ToLower(strings.TrimSpace(x))
			if x == "" || seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Probe.ClosedPhrases = trimList(out.Probe.ClosedPhrases)
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))

	// ---- app / store ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	switch out.Store.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn is required when store.driver=postgres")
		}
	default:
		res.addErr("store.driver must be sqlite or postgres, got %q", out.Store.Driver)
	}
	switch out.Log.Format {
	case "json", "console":
	default:
		res.addErr("log.format must be json or console, got %q", out.Log.Format)
	}

	// ---- sources ----

	names := map[string]bool{}
	enabled := 0
	for i := range out.Sources {
		s := &out.Sources[i]
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		s.Format = SourceFormat(strings.ToLower(strings.TrimSpace(string(s.Format))))

		if s.Name == "" {
			res.addErr("sources[%d].name is required", i)
		} else if names[s.Name] {
			res.addErr("sources[%d].name %q is duplicated", i, s.Name)
		}
		names[s.Name] = true

		if u, err := url.Parse(s.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.addErr("sources[%d].url must be an absolute http(s) URL", i)
		}
		if s.Format != FormatMarkdown && s.Format != FormatHTML {
			res.addErr("sources[%d].format must be markdown or html, got %q", i, s.Format)
		}
		if s.Priority < 1 {
			res.addWarn("sources[%d].priority is %d; lower numbers win dedupe, 1 is the highest", i, s.Priority)
		}
		if !s.Disabled {
			enabled++
		}
	}
	if enabled == 0 {
		res.addErr("no sources enabled")
	}

	// ---- fetch / probe ----

	if out.Fetch.Timeout <= 0 {
		res.addErr("fetch.timeout must be > 0")
	}
	if out.Probe.Enabled {
		if out.Probe.BatchSize <= 0 {
			res.addErr("probe.batch_size must be > 0")
		} else if out.Probe.BatchSize > 100 {
			res.addWarn("probe.batch_size is %d; large batches hit many hosts at once", out.Probe.BatchSize)
		}
		if out.Probe.Timeout <= 0 {
			res.addErr("probe.timeout must be > 0")
		}
		if out.Probe.Stagger < 0 {
			res.addErr("probe.stagger must be >= 0")
		}
		if out.Probe.MaxBodyBytes <= 0 {
			res.addErr("probe.max_body_bytes must be > 0")
		}
	}

	// ---- trigger / cron ----

	if out.Trigger.Interval <= 0 {
		res.addErr("trigger.interval must be > 0")
	}
	if out.Cron.Interval <= 0 {
		res.addErr("cron.interval must be > 0")
	} else if out.Cron.Interval < time.Minute {
		res.addWarn("cron.interval is very low (%s) and may get the sources to rate limit you", out.Cron.Interval)
	}
	if strings.TrimSpace(out.Trigger.Secret) == "" && strings.TrimSpace(out.Trigger.KeyringAccount) == "" {
		res.addWarn("no trigger secret or keyring account configured; /api/scrape will reject every request")
	}

	return out, res
}
