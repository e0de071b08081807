package config

// PathConfig locates the external dump tools.
type PathConfig struct {
	MSSQL string `mapstructure:"mssql"`
	MySQL string `mapstructure:"mysql"`
}
