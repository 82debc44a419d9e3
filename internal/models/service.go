package models

// ServiceConfig holds the display label, default duration in minutes, and
// availability of one service type.
type ServiceConfig struct {
	Name        string `json:"name"`
	DefaultTime int    `json:"defaultTime"`
	Enabled     bool   `json:"enabled"`
}

type ServiceSettings map[ServiceType]ServiceConfig

// DefaultServiceSettings returns the shipped configuration: three services,
// enabled, with no predefined duration so every ticket gets a custom time or
// the 15-minute fallback.
func DefaultServiceSettings() ServiceSettings {
	return ServiceSettings{
		ServiceDigitalPrint: {Name: "Impresión Digital", DefaultTime: 0, Enabled: true},
		ServiceCut:          {Name: "Corte", DefaultTime: 0, Enabled: true},
		ServiceLaminate:     {Name: "Laminado", DefaultTime: 0, Enabled: true},
	}
}

// Clone returns an independent copy of the settings map.
func (s ServiceSettings) Clone() ServiceSettings {
	out := make(ServiceSettings, len(s))
	for key, cfg := range s {
		out[key] = cfg
	}
	return out
}
