package config

const (
	defaultJobDir             = "~/.local/share/cogstream/jobs"
	defaultQueueDir           = "~/.local/share/cogstream/queue"
	defaultLogDir             = "~/.local/share/cogstream/logs"
	defaultCatalogPath        = "~/.local/share/cogstream/catalog.db"
	defaultQueueLimit         = 16
	defaultTransformWorkers   = 7
	defaultPublishWorkers     = 7
	defaultEnumerateWorkers   = 8
	defaultPollIntervalMillis = 200
	defaultConverterCommand   = "cogconvert"
	defaultUploaderCommand    = "aws"
	defaultValidatorCommand   = "validate_cloud_optimized_geotiff.py"
	defaultValidatorPattern   = "**/*.{tif,tiff,TIF,TIFF}"
	defaultMetadataPattern    = "*.yaml"
	defaultNtfyTimeoutSeconds = 10
	defaultLogFormat          = "auto"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JobDir:      defaultJobDir,
			QueueDir:    defaultQueueDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Pipeline: Pipeline{
			QueueLimit:         defaultQueueLimit,
			TransformWorkers:   defaultTransformWorkers,
			PublishWorkers:     defaultPublishWorkers,
			EnumerateWorkers:   defaultEnumerateWorkers,
			PollIntervalMillis: defaultPollIntervalMillis,
		},
		Converter: Converter{
			Command: defaultConverterCommand,
			Args:    []string{"{input}", "{output}"},
		},
		Uploader: Uploader{
			Command: defaultUploaderCommand,
			Args:    []string{"s3", "sync", "--only-show-errors", "{src}", "{dest}"},
		},
		Validator: Validator{
			Command:         defaultValidatorCommand,
			Args:            []string{"{path}"},
			Pattern:         defaultValidatorPattern,
			MetadataPattern: defaultMetadataPattern,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
