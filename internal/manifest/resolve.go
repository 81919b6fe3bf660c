package manifest

// Names returns the environment names in document order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Environments))
	for i, env := range m.Environments {
		names[i] = env.Name
	}
	return names
}

// Resolve returns the environment whose name equals target.
// The comparison is a direct membership test against the literal names;
// an empty target never matches.
func (m *Manifest) Resolve(target string) (*Environment, error) {
	if target != "" {
		for i := range m.Environments {
			if m.Environments[i].Name == target {
				return &m.Environments[i], nil
			}
		}
	}
	return nil, &UnknownEnvironmentError{Target: target, Available: m.Names()}
}
