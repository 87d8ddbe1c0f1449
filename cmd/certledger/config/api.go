package config

// apiConf holds API-related configuration
type apiConf struct {
	Admin adminAPIConf `yaml:"admin"`
	// RequireInstitutionAuth requires issuing institutions to present a
	// session obtained from /institutions/login
	RequireInstitutionAuth bool `yaml:"require_institution_auth"`
}

type adminAPIConf struct {
	Enabled          bool `yaml:"enabled"`
	OperatorsEnabled bool `yaml:"operators_enabled"`
	Port             int  `yaml:"port"`
}

var defaultAPIConf = apiConf{
	Admin: adminAPIConf{
		Enabled:          true,
		OperatorsEnabled: true,
		Port:             0, // 0 means use main server
	},
}
