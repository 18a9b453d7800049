package intent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnsureProfileFile writes the built-in profiles to path as YAML when the file
// does not exist yet, giving operators a starting point for tuning patterns.
func EnsureProfileFile(path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return nil
	}
	clean = filepath.Clean(clean)
	if _, err := os.Stat(clean); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat profile file: %w", err)
	}

	dir := filepath.Dir(clean)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
	}

	data, err := yaml.Marshal(rawProfiles)
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := os.WriteFile(clean, data, 0o644); err != nil {
		return fmt.Errorf("write profile file: %w", err)
	}
	return nil
}

// LoadProfiles returns the compiled profiles. An empty path yields the defaults.
// Intents present in the file replace the built-in profile for that intent; the
// boolean reports whether a file was used. Invalid files are rejected.
func LoadProfiles(path string) (*ProfileSet, bool, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return defaultProfiles, false, nil
	}

	data, err := os.ReadFile(filepath.Clean(clean))
	if err != nil {
		return defaultProfiles, false, fmt.Errorf("read profile file: %w", err)
	}

	overrides := make(map[string]ProfileSpec)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return defaultProfiles, false, fmt.Errorf("decode profile file: %w", err)
	}

	set, err := CompileProfiles(mergeProfileSpecs(rawProfiles, overrides))
	if err != nil {
		return defaultProfiles, false, err
	}
	return set, true, nil
}

func mergeProfileSpecs(base, overrides map[string]ProfileSpec) map[string]ProfileSpec {
	merged := cloneProfileSpecMap(base)
	for name, spec := range overrides {
		merged[name] = cloneProfileSpec(spec)
	}
	return merged
}

func cloneProfileSpecMap(src map[string]ProfileSpec) map[string]ProfileSpec {
	dst := make(map[string]ProfileSpec, len(src))
	for name, spec := range src {
		dst[name] = cloneProfileSpec(spec)
	}
	return dst
}

func cloneProfileSpec(spec ProfileSpec) ProfileSpec {
	res := ProfileSpec{}
	if len(spec.High) > 0 {
		res.High = append([]PatternRule(nil), spec.High...)
	}
	if len(spec.Medium) > 0 {
		res.Medium = append([]PatternRule(nil), spec.Medium...)
	}
	if len(spec.ContextTerms) > 0 {
		res.ContextTerms = append([]string(nil), spec.ContextTerms...)
	}
	if len(spec.TimePatterns) > 0 {
		res.TimePatterns = append([]PatternRule(nil), spec.TimePatterns...)
	}
	if len(spec.NegativePatterns) > 0 {
		res.NegativePatterns = append([]string(nil), spec.NegativePatterns...)
	}
	return res
}
