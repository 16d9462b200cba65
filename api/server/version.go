package server

// NodeVersion returns the node release tag.
func NodeVersion() string {
	return "0.3.0"
}

// APIVersion returns the HTTP API version.
func APIVersion() string {
	return "v1"
}
