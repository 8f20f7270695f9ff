package provider

// Options is the union of every key any adapter reads. Each adapter copies
// the keys it needs into its own validated Config and ignores the rest.
type Options struct {
	// HTTP backends
	Host string `yaml:"host" json:"host,omitempty"`

	// S3-compatible backends
	Endpoint        string `yaml:"endpoint" json:"endpoint,omitempty"`
	Port            int    `yaml:"port" json:"port,omitempty"`
	Region          string `yaml:"region" json:"region,omitempty"`
	UseSSL          bool   `yaml:"useSSL" json:"useSSL,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId" json:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey" json:"secretAccessKey,omitempty"`
	PathStyle       bool   `yaml:"pathStyle" json:"pathStyle,omitempty"`

	// Blob buckets (file:///srv/data, mem://)
	URL string `yaml:"url" json:"url,omitempty"`

	// Session credentials for providers implementing Authenticator
	Username string `yaml:"username" json:"username,omitempty"`
	Password string `yaml:"password" json:"-"`

	// Attempts for idempotent HTTP reads (0 = default)
	RetryAttempts int `yaml:"retryAttempts" json:"retryAttempts,omitempty"`
}
