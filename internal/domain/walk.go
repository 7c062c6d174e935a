package domain

// WalkConditionValues calls fn for every Value operand reachable from
// cond: the comparison/segmentation Value itself (segmentation has
// none) and, recursively, the Values of every and/or/not child.
func WalkConditionValues(cond Condition, fn func(*Value)) {
	if cond.Value != nil {
		fn(cond.Value)
	}
	for _, child := range cond.Conditions {
		WalkConditionValues(child, fn)
	}
	if cond.Condition != nil {
		WalkConditionValues(*cond.Condition, fn)
	}
}

// WalkOverrideValues calls fn for every Value operand reachable from
// override: its own Value plus every condition's operand Values.
func WalkOverrideValues(override Override, fn func(*Value)) {
	fn(&override.Value)
	for _, cond := range override.Conditions {
		WalkConditionValues(cond, fn)
	}
}

// ReferencedConfigs returns the distinct (projectId, configName) pairs
// referenced anywhere within overrides.
func ReferencedConfigs(overrides []Override) []struct{ ProjectID, ConfigName string } {
	seen := make(map[struct{ ProjectID, ConfigName string }]struct{})
	for _, ov := range overrides {
		WalkOverrideValues(ov, func(v *Value) {
			if v.IsReference() {
				key := struct{ ProjectID, ConfigName string }{v.ProjectID, v.ConfigName}
				seen[key] = struct{}{}
			}
		})
	}
	out := make([]struct{ ProjectID, ConfigName string }, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}
