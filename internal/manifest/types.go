package manifest

// Manifest is a parsed deployment manifest.
type Manifest struct {
	// Environments in document order. Names are unique.
	Environments []Environment
}

// Environment is one deployment target.
type Environment struct {
	// Name is matched against the requested environment (yaml: project).
	Name string `yaml:"project"`

	// ProjectID identifies the remote project (yaml: id).
	ProjectID string `yaml:"id"`

	// Services to deploy, in document order (yaml: repos).
	Services ServiceList `yaml:"repos"`
}

// Service describes the updates to push for a single service.
// Every field is optional; an empty field skips that kind of update.
type Service struct {
	// Name is the mapping key under repos.
	Name string

	// Image is the container image reference.
	Image string

	// Config is sent verbatim as JSON. Nested mappings are map[string]any.
	Config any

	// Files are auxiliary uploads in document order.
	Files FileList
}

// HasImage reports whether an image update is requested.
func (s Service) HasImage() bool {
	return s.Image != ""
}

// HasConfig reports whether a config update is requested.
func (s Service) HasConfig() bool {
	return s.Config != nil
}

// HasFiles reports whether any file uploads are requested.
func (s Service) HasFiles() bool {
	return len(s.Files) > 0
}

// IsEmpty reports whether the service requests no updates at all.
func (s Service) IsEmpty() bool {
	return !s.HasImage() && !s.HasConfig() && !s.HasFiles()
}

// ServiceList is an ordered set of services keyed by name.
type ServiceList []Service

// Names returns the service names in order.
func (l ServiceList) Names() []string {
	names := make([]string, len(l))
	for i, s := range l {
		names[i] = s.Name
	}
	return names
}

// File is a single auxiliary file upload.
type File struct {
	// Label is the mapping key under files.
	Label string

	// Source is a URL or inline content.
	Source string
}

// FileList is an ordered set of files keyed by label.
type FileList []File
