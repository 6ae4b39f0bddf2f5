// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/config"
	"github.com/scc-digitalhub/digitalhub-batch-inference/sdk/logger"
)

// EnvPrefix: PREFIX_FOO is mirrored to FOO when FOO is unset
const EnvPrefix = "DHINFER"

// Settings holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - persist: "true" to write the key into the INI
// - default: optional default to set if key is unset
// - secret: "true" if sensitive, masked by Describe
// - bind: "false" to NOT bind from env (we still can set defaults)
type Settings struct {
	S3BucketName        string `vkey:"s3_bucket_name"           env:"S3_BUCKET_NAME"           persist:"true"`
	S3ObjectKey         string `vkey:"s3_object_key"            env:"S3_OBJECT_KEY"            persist:"true"`
	S3EndpointURL       string `vkey:"s3_endpoint_url"          env:"S3_ENDPOINT_URL"          persist:"true"`
	AwsAccessKeyID      string `vkey:"aws_access_key_id"        env:"AWS_ACCESS_KEY_ID"        persist:"true"  secret:"true"`
	AwsSecretAccessKey  string `vkey:"aws_secret_access_key"    env:"AWS_SECRET_ACCESS_KEY"    persist:"true"  secret:"true"`
	AwsSessionToken     string `vkey:"aws_session_token"        env:"AWS_SESSION_TOKEN"        persist:"false" secret:"true"`
	AwsDefaultRegion    string `vkey:"aws_default_region"       env:"AWS_DEFAULT_REGION"       persist:"true"  default:"us-east-1"`
	MlflowTrackingURI   string `vkey:"mlflow_tracking_uri"      env:"MLFLOW_TRACKING_URI"      persist:"true"`
	MlflowLoggedModel   string `vkey:"mlflow_logged_model"      env:"MLFLOW_LOGGED_MODEL"      persist:"true"`
	MlflowTrackingToken string `vkey:"mlflow_tracking_token"    env:"MLFLOW_TRACKING_TOKEN"    persist:"true"  secret:"true"`
	MlflowTrackingUser  string `vkey:"mlflow_tracking_username" env:"MLFLOW_TRACKING_USERNAME" persist:"true"`
	MlflowTrackingPass  string `vkey:"mlflow_tracking_password" env:"MLFLOW_TRACKING_PASSWORD" persist:"true"  secret:"true"`
	ModelServingURL     string `vkey:"model_serving_url"        env:"MODEL_SERVING_URL"        persist:"true"`
	OutputBucketName    string `vkey:"output_bucket_name"       env:"OUTPUT_BUCKET_NAME"       persist:"true"`
	OutputObjectKey     string `vkey:"output_object_key"        env:"OUTPUT_OBJECT_KEY"        persist:"true"  default:"data/predictions.csv"`
	InputStagingPath    string `vkey:"input_staging_path"       env:"INPUT_STAGING_PATH"       persist:"true"  default:"/tmp/test.csv"`
	OutputStagingPath   string `vkey:"output_staging_path"      env:"OUTPUT_STAGING_PATH"      persist:"true"  default:"/tmp/predictions.csv"`
	IDColumn            string `vkey:"id_column"                env:"ID_COLUMN"                persist:"true"  default:"PassengerId"`
	PredictionColumn    string `vkey:"prediction_column"        env:"PREDICTION_COLUMN"        persist:"true"  default:"predictions"`
	LogLevel            string `vkey:"log_level"                env:"LOG_LEVEL"                persist:"false" default:"info"`
	UpdatedEnvironment  string `vkey:"updated_environment" env:"UPDATED_ENVIRONMENT" persist:"false" bind:"false"`
	CurrentEnvironment  string `vkey:"current_environment" env:"CURRENT_ENVIRONMENT" persist:"false" bind:"false"`
}

type settingField struct {
	key     string
	env     string
	def     string
	persist bool
	secret  bool
	bind    bool
}

func settingFields() []settingField {
	rt := reflect.TypeOf(Settings{})
	out := make([]settingField, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		out = append(out, settingField{
			key:     key,
			env:     env,
			def:     f.Tag.Get("default"),
			persist: f.Tag.Get("persist") == "true",
			secret:  f.Tag.Get("secret") == "true",
			bind:    !strings.EqualFold(f.Tag.Get("bind"), "false"),
		})
	}
	return out
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return defaultEnvironmentTag
}

// mirror PREFIX_FOO -> FOO (optional)
func mirrorPrefix(prefix string) {
	if prefix == "" {
		return
	}
	upPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		name, val, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(name, upPrefix) {
			continue
		}
		unpref := strings.TrimPrefix(name, upPrefix)
		if os.Getenv(unpref) == "" {
			_ = os.Setenv(unpref, val)
		}
	}
}

// NewViper returns a viper instance with every Settings key bound to its
// environment variable and defaulted.
func NewViper() *viper.Viper {
	v := viper.New()
	BindEnvFromStruct(v, EnvPrefix)
	return v
}

// Bind env for all fields of Settings using struct tags.
func BindEnvFromStruct(v *viper.Viper, prefix string) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	mirrorPrefix(prefix)

	for _, f := range settingFields() {
		if f.bind {
			_ = v.BindEnv(f.key, f.env)
		}
		if f.def != "" && !v.IsSet(f.key) {
			v.SetDefault(f.key, f.def)
		}
	}
}

// LoadProfile reads [DEFAULT] + the active section of the INI at iniPath
// into v. A missing file is not an error: the environment alone is used.
// Environment variables still win over the file on Get().
func LoadProfile(v *viper.Viper, iniPath string, optionalEnv ...string) error {
	env := resolveEnvName(optionalEnv...)
	if _, err := os.Stat(iniPath); errors.Is(err, fs.ErrNotExist) {
		logger.Log.Debug().Str("path", iniPath).Msg("INI not found; using environment variables")
		v.Set(CurrentEnvironment, env)
		return nil
	}

	cfg, err := ini.Load(iniPath)
	if err != nil {
		return fmt.Errorf("failed to read INI %s: %w", iniPath, err)
	}

	// active env: --env > DEFAULT.current_environment > default
	if env == defaultEnvironmentTag {
		if name := cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).String(); name != "" {
			env = name
		}
	}

	if err := loadIniSectionIntoViper(v, cfg, env); err != nil {
		return fmt.Errorf("failed to load INI into viper: %w", err)
	}
	v.Set(CurrentEnvironment, env)
	return nil
}

// Load [DEFAULT] + [env] into Viper (TOML in-memory).
func loadIniSectionIntoViper(v *viper.Viper, cfg *ini.File, env string) error {
	def := cfg.Section(ini.DefaultSection)
	selected := def
	switch {
	case env != "" && cfg.HasSection(env):
		selected = cfg.Section(env)
		logger.Log.Debug().Str("env", env).Msg("using profile section")
	case env == "" || strings.EqualFold(env, ini.DefaultSection) || env == defaultEnvironmentTag:
		logger.Log.Debug().Msg("using profile section [DEFAULT]")
	default:
		logger.Log.Warn().Str("env", env).Msg("profile section not found, falling back to [DEFAULT]")
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}
	delete(merged, CurrentEnvironment)

	var buf bytes.Buffer
	for k, val := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(val, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	v.SetConfigType("toml")
	return v.ReadConfig(&buf)
}

// SaveProfile updates or creates the [envName] section of the INI with the
// current non-empty values of the keys marked persist:"true".
func SaveProfile(v *viper.Viper, iniPath, envName string) error {
	envName = resolveEnvName(envName)
	cfg, err := ini.Load(iniPath)
	if err != nil {
		cfg = ini.Empty()
	}
	sec := cfg.Section(envName)

	for _, f := range settingFields() {
		if !f.persist {
			continue
		}
		if val := v.GetString(f.key); val != "" {
			sec.Key(f.key).SetValue(val)
		}
	}

	if !cfg.Section(ini.DefaultSection).HasKey(CurrentEnvironment) {
		cfg.Section(ini.DefaultSection).Key(CurrentEnvironment).SetValue(envName)
	}
	sec.Key(UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))
	return cfg.SaveTo(iniPath)
}

// ToConfig maps the resolved keys onto the SDK configuration.
func ToConfig(v *viper.Viper) config.Config {
	return config.Config{
		Tracking: config.TrackingConfig{
			TrackingURI:    v.GetString(MlflowTrackingURI),
			ServingURL:     v.GetString(ModelServingURL),
			ModelReference: v.GetString(MlflowLoggedModel),
			Token:          v.GetString(MlflowTrackingToken),
			Username:       v.GetString(MlflowTrackingUser),
			Password:       v.GetString(MlflowTrackingPass),
		},
		S3: config.S3Config{
			AccessKey:   v.GetString(AwsAccessKeyID),
			SecretKey:   v.GetString(AwsSecretAccessKey),
			AccessToken: v.GetString(AwsSessionToken),
			Region:      v.GetString(AwsDefaultRegion),
			EndpointURL: v.GetString(S3EndpointURL),
		},
		Pipeline: config.PipelineConfig{
			InputBucket:       v.GetString(S3BucketName),
			InputKey:          v.GetString(S3ObjectKey),
			OutputBucket:      v.GetString(OutputBucketName),
			OutputKey:         v.GetString(OutputObjectKey),
			InputStagingPath:  v.GetString(InputStagingPath),
			OutputStagingPath: v.GetString(OutputStagingPath),
			IDColumn:          v.GetString(IDColumn),
			PredictionColumn:  v.GetString(PredictionColumn),
		},
	}
}

// Describe lists every key with its effective value, secrets masked.
func Describe(v *viper.Viper) []KeyValue {
	fields := settingFields()
	out := make([]KeyValue, 0, len(fields))
	for _, f := range fields {
		val := v.GetString(f.key)
		if f.secret && val != "" {
			val = secretMask
		}
		out = append(out, KeyValue{Key: f.key, Env: f.env, Value: val})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

type KeyValue struct {
	Key   string `json:"key"`
	Env   string `json:"env"`
	Value string `json:"value"`
}
