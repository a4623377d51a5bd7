package v1

const ShrinkJobKind = "ShrinkJob"

type ShrinkJob struct {
	Kind     string        `yaml:"kind" json:"kind" validate:"required,eq=ShrinkJob"`
	Metadata Metadata      `yaml:"metadata" json:"metadata"`
	Spec     ShrinkJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ShrinkJobSpec struct {
	// Options apply to every book unless the book overrides them.
	Options *ShrinkOptions `yaml:"options,omitempty" json:"options,omitempty"`

	// S3 configures uploads for books whose output is an s3:// URL.
	S3 *S3Spec `yaml:"s3,omitempty" json:"s3,omitempty"`

	Books []Book `yaml:"books" json:"books" validate:"required,min=1,dive"`
}

// Book is one EPUB to shrink. Input and Output accept ${VAR} references to
// the job variables and allowed environment variables.
type Book struct {
	Input   string         `yaml:"input" json:"input" validate:"required" template:""`
	Output  string         `yaml:"output" json:"output" validate:"required" template:""`
	Options *ShrinkOptions `yaml:"options,omitempty" json:"options,omitempty"`
}

// ShrinkOptions mirrors the shrink command flags. Unset fields fall back to
// the job options, then to the defaults.
type ShrinkOptions struct {
	JPEGQuality *int `yaml:"jpeg_quality,omitempty" json:"jpeg_quality,omitempty" validate:"omitempty,min=1,max=100"`

	// ImageResizePercent and ImageResizeMaxWidth are mutually exclusive.
	ImageResizePercent  *float64 `yaml:"image_resize_percent,omitempty" json:"image_resize_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
	ImageResizeMaxWidth *int     `yaml:"image_resize_maxwidth,omitempty" json:"image_resize_maxwidth,omitempty" validate:"omitempty,gt=0"`
	ImageResizeResample *string  `yaml:"image_resize_resample,omitempty" json:"image_resize_resample,omitempty"`

	Grayscale   *bool `yaml:"grayscale,omitempty" json:"grayscale,omitempty"`
	Concurrency *int  `yaml:"concurrency,omitempty" json:"concurrency,omitempty" validate:"omitempty,gte=1"`
}

// S3Spec configures the S3 client used for s3:// outputs.
type S3Spec struct {
	Region         *string `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	ForcePathStyle bool    `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`

	// Credentials are optional; the default AWS credential chain is used otherwise.
	Credentials *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" validate:"required" template:""`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" validate:"required" template:""`
}
