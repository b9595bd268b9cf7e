package metrics

// CompositeResolver derives the chartable scalar for a multi-field
// measurement value. Resolvers must be pure and must not modify the map.
type CompositeResolver func(fields map[string]float64) float64

// compositeResolvers is keyed by metric type. Types without a resolver fall
// through to non-chartable; their points stay in the timeline feed.
var compositeResolvers = map[string]CompositeResolver{
	"blood_pressure": meanArterialPressure,
}

// meanArterialPressure approximates MAP as (systolic + 2*diastolic) / 3.
// A missing sub-field reads as 0 for the arithmetic only; the original
// fields are untouched.
func meanArterialPressure(fields map[string]float64) float64 {
	return (fields["systolic"] + 2*fields["diastolic"]) / 3
}

// ResolveComposite computes the derived scalar for a composite metric type.
// The second return is false when no resolver is registered for the type.
func ResolveComposite(metricType string, fields map[string]float64) (float64, bool) {
	resolver, ok := compositeResolvers[metricType]
	if !ok {
		return 0, false
	}
	return resolver(fields), true
}

// RegisterComposite adds or replaces a resolver for a metric type.
func RegisterComposite(metricType string, resolver CompositeResolver) {
	compositeResolvers[metricType] = resolver
}
