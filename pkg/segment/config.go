package segment

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Config is the static configuration of one pipeline, read from the "segment" key of the config file
type Config struct {
	Range       ColorRange       `mapstructure:"range"`
	Kernel      int              `mapstructure:"kernel"`
	Rules       Rules            `mapstructure:"rules"`
	Margin      int              `mapstructure:"margin"`
	Stroke      int              `mapstructure:"stroke"`
	Labels      bool             `mapstructure:"labels"`
	RemoveField bool             `mapstructure:"remove_field"`
	Lock        LockTrigger      `mapstructure:"lock"`
	Preprocess  PreprocessConfig `mapstructure:"preprocess"`
}

//DefaultConfig is tuned for a green pitch filmed from the side
func DefaultConfig() Config {
	return Config{
		Range: ColorRange{
			Lower: HSV{H: 40, S: 70, V: 60},
			Upper: HSV{H: 75, S: 255, V: 255},
		},
		Kernel: 5,
		Rules:  DefaultRules(),
		Margin: 5,
		Stroke: 4,
		Lock: LockTrigger{
			AfterFrames: 90, //~3 seconds at 30fps
		},
		Preprocess: PreprocessConfig{
			Blur:       7,
			KMeansK:    8,
			KMeansIter: 5,
			Colors:     8,
			Bits:       4,
		},
	}
}

//Validate checks every bound the pipeline relies on
func (c Config) Validate() error {
	if !c.Range.valid() {
		return errors.Errorf("segment: invalid colour range %+v", c.Range)
	}
	if c.Kernel <= 0 {
		return errors.Errorf("segment: kernel size %d", c.Kernel)
	}
	if c.Margin < 0 || c.Stroke <= 0 {
		return errors.Errorf("segment: margin %d, stroke %d", c.Margin, c.Stroke)
	}
	if c.Lock.AfterFrames < 0 || c.Lock.AfterSamples < 0 {
		return errors.Errorf("segment: negative lock trigger %+v", c.Lock)
	}
	if err := c.Rules.validate(); err != nil {
		return err
	}
	for _, name := range c.Preprocess.Stages {
		if _, err := NewPreprocessor(name, c.Preprocess); err != nil {
			return err
		}
	}
	return nil
}

//LoadConfig overlays the "segment" section of v on top of DefaultConfig
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if v.IsSet("segment") {
		if err := v.UnmarshalKey("segment", &cfg); err != nil {
			return cfg, errors.Wrap(err, "segment: could not read config")
		}
	}
	return cfg, cfg.Validate()
}
