package persona

// Version is the engine version, overridable at build time with
// -ldflags "-X github.com/personakit/persona.Version=...".
var Version = "0.3.0-dev"
