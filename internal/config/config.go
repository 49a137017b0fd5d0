package config

type Config interface {
	ServerConfig
	SpotifyConfig
	StoreConfig
	RoasterConfig
}

type ServerConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// SpotifyConfig supplies the OAuth client credentials and the secret used to
// sign the state parameter on the authorize redirect.
type SpotifyConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetStateSecret() []byte
}

type StoreConfig interface {
	GetRedisURL() string
}

type RoasterConfig interface {
	GetGeminiKey() string
	GetGeminiModel() string
}
