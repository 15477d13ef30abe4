package config

import "os"

// applyEnvOverrides mirrors the teacher's Config.applyEnvOverrides shape
// (env vars win over file/defaults, applied last) but resolves this
// module's documented toggles (§6 "Environment toggles") instead of LLM
// provider keys: JAC_RD_PARSER (parser backend selection), JAC_CACHE_DIR,
// and the color/emoji suppression pair.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("JAC_RD_PARSER"); v != "" {
		c.UseRDParser = isTruthy(v)
	}
	if dir := os.Getenv("JAC_CACHE_DIR"); dir != "" {
		c.CacheDir = dir
	}
	if NoColor() {
		c.NoColor = true
	}
	if NoEmoji() {
		c.NoEmoji = true
	}
}

// NoColor reports whether color output should be suppressed, per the
// documented NO_COLOR / JAC_NO_COLOR toggle pair (either set, regardless
// of value, disables color per the http://no-color.org convention).
func NoColor() bool {
	_, a := os.LookupEnv("NO_COLOR")
	_, b := os.LookupEnv("JAC_NO_COLOR")
	return a || b
}

// NoEmoji reports whether emoji/unicode glyphs should be suppressed:
// either an explicit NO_EMOJI toggle, or a dumb terminal that can't
// reliably render them.
func NoEmoji() bool {
	if _, ok := os.LookupEnv("NO_EMOJI"); ok {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	default:
		return false
	}
}
