package llm

import "strings"

// Profile is the sampling-parameter convention a model family accepts.
type Profile int

const (
	// ProfileBroad models accept temperature, max_tokens and both penalties.
	ProfileBroad Profile = iota
	// ProfileRestricted models run at a fixed temperature, reject the
	// penalties entirely and take max_completion_tokens.
	ProfileRestricted
)

func (p Profile) String() string {
	if p == ProfileRestricted {
		return "restricted"
	}
	return "broad"
}

var restrictedPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// DetectProfile inspects a model name such as "gpt-4o-mini", "o3-mini" or
// "openai/gpt-5-mini".
func DetectProfile(model string) Profile {
	name := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	for _, prefix := range restrictedPrefixes {
		if name == prefix || strings.HasPrefix(name, prefix+"-") || strings.HasPrefix(name, prefix+".") {
			return ProfileRestricted
		}
	}
	return ProfileBroad
}
