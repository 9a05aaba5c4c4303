package models

// ServerConfig holds the connection engine's configuration
type ServerConfig struct {
	Port        string `json:"port,omitzero" yaml:"port"`
	Environment string `json:"environment,omitzero" yaml:"environment"`
	LogLevel    string `json:"log_level,omitzero" yaml:"log_level"`

	// ContentWindow bounds how many body chunks may sit unread per stream
	// before the engine stops reading ahead from the transport.
	ContentWindow int `json:"content_window,omitzero" yaml:"content_window"`

	// ReadBufferSize is the per-connection read buffer handed to fasthttp.
	ReadBufferSize int `json:"read_buffer_size,omitzero" yaml:"read_buffer_size"`

	// MaxBodySize caps the request body size accepted by the transport.
	MaxBodySize int `json:"max_body_size,omitzero" yaml:"max_body_size"`
}

// OpsConfig holds the operational HTTP surface configuration
type OpsConfig struct {
	Enabled bool   `json:"enabled,omitzero" yaml:"enabled"`
	Port    string `json:"port,omitzero" yaml:"port"`
}
