package constants

// DefaultEndpoint is the OpenSubtitles XML-RPC endpoint.
const DefaultEndpoint = "http://api.opensubtitles.org/xml-rpc"

// DefaultUserAgent is sent with LogIn when none is configured.
const DefaultUserAgent = "OS Test User Agent"

// DefaultLanguage is the ISO 639-2/B code searched for by default.
const DefaultLanguage = "eng"
