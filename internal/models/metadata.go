package models

// RequestMetadata carries the request line and headers of an exchange,
// already parsed by the transport. Bodies travel separately as stream
// content.
type RequestMetadata struct {
	Method  string
	Target  string
	Headers map[string]string
}

// ResponseMetadata carries the status and headers for a response. It is
// written once, on the first send of an exchange; later sends carry body
// chunks only.
type ResponseMetadata struct {
	Status  int
	Headers map[string]string
}

// Clone returns a deep copy so a handler can reuse a template without
// sharing the header map.
func (m *ResponseMetadata) Clone() *ResponseMetadata {
	if m == nil {
		return nil
	}
	c := &ResponseMetadata{Status: m.Status}
	if m.Headers != nil {
		c.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			c.Headers[k] = v
		}
	}
	return c
}
