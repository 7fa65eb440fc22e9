package config

const (
	defaultConfigPath        = "~/.config/packrat/config.toml"
	defaultOutputDir         = "~/packrat/assets"
	defaultStateDir          = "~/.local/share/packrat"
	defaultLogDir            = "~/.local/share/packrat/logs"
	defaultCredentialsFile   = "~/.config/packrat/credentials.json"
	defaultMappingFile       = "mapping"
	defaultCatalogPath       = "/packs"
	defaultLoginPath         = "/login"
	defaultLang              = "en"
	defaultWindowWidth       = 1366
	defaultWindowHeight      = 900
	defaultNavigationTimeout = 45
	defaultResolutionTimeout = 20
	defaultDownloadTimeout   = 120
	defaultSettleMS          = 1500
	defaultPollMS            = 250
	defaultMaxPages          = 200
	defaultExtractionMode    = ExtractionLinks
	defaultExtension         = "glb"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Extraction modes accepted by crawl.extraction_mode.
const (
	ExtractionLinks = "links"
	ExtractionSlugs = "slugs"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:       defaultOutputDir,
			StateDir:        defaultStateDir,
			LogDir:          defaultLogDir,
			CredentialsFile: defaultCredentialsFile,
			MappingFile:     defaultMappingFile,
		},
		Site: Site{
			CatalogPath: defaultCatalogPath,
			LoginPath:   defaultLoginPath,
			Lang:        defaultLang,
		},
		Browser: Browser{
			Headless:     true,
			WindowWidth:  defaultWindowWidth,
			WindowHeight: defaultWindowHeight,
		},
		Timeouts: Timeouts{
			Navigation: defaultNavigationTimeout,
			Resolution: defaultResolutionTimeout,
			Download:   defaultDownloadTimeout,
			SettleMS:   defaultSettleMS,
			PollMS:     defaultPollMS,
		},
		Crawl: Crawl{
			MaxPages:       defaultMaxPages,
			ExtractionMode: defaultExtractionMode,
		},
		Download: Download{
			Extension: defaultExtension,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
