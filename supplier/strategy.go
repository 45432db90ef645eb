package supplier

// Supplier names.
const (
	NameFast     = "fast"
	NameAccurate = "accurate"
)

// StrategyInput holds the facts the routing decision depends on.
type StrategyInput struct {
	ForceHighAccuracy bool
	FastAllowed       bool
	AccurateAllowed   bool
	HasAudio          bool
}

// Strategy is the routing decision for one job.
type Strategy struct {
	UseFast            bool `json:"use_fast"`
	UseAccurate        bool `json:"use_accurate"`
	FallbackToAccurate bool `json:"fallback_to_accurate"`
}

// Resolve decides which supplier serves a job. High-accuracy requests only
// go to the accurate supplier. Standard requests prefer the fast supplier
// and fall back to the accurate one only when fast is not allowed at all.
// Without resolved audio nothing is selected.
func Resolve(in StrategyInput) Strategy {
	useFast := !in.ForceHighAccuracy && in.FastAllowed && in.HasAudio
	return Strategy{
		UseFast:            useFast,
		UseAccurate:        in.ForceHighAccuracy && in.AccurateAllowed && in.HasAudio,
		FallbackToAccurate: !useFast && !in.FastAllowed && in.AccurateAllowed && !in.ForceHighAccuracy && in.HasAudio,
	}
}

// Targets lists the suppliers to dispatch to, in call order.
func (s Strategy) Targets() []string {
	var out []string
	if s.UseFast {
		out = append(out, NameFast)
	}
	if s.UseAccurate || s.FallbackToAccurate {
		out = append(out, NameAccurate)
	}
	return out
}

// Empty reports whether no supplier was selected.
func (s Strategy) Empty() bool { return len(s.Targets()) == 0 }
