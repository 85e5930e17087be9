// Package config loads configuration structs from a YAML file overlaid with
// environment variables, driven by `yaml`, `env`, `default` and `required`
// struct tags.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Validator interface allows config structs to implement custom validation logic.
// If a config struct implements this interface, validation will be automatically
// called after loading configuration from files and environment variables.
type Validator interface {
	Validate() error
}

func setFieldFromString(field reflect.Value, raw string) error {
	// time.Duration is an int64 underneath, check it first
	if field.Type() == durationType {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %s to duration: %v", raw, err)
		}
		field.SetInt(int64(duration))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		intVal, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to convert %s to int: %v", raw, err)
		}
		field.SetInt(intVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("failed to convert %s to bool: %v", raw, err)
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		// Comma-separated string slices only
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		values := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(values), len(values))
		for i, v := range values {
			slice.Index(i).SetString(strings.TrimSpace(v))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

func processFields(val reflect.Value, typeOfT reflect.Type) (map[string]bool, error) {
	setFields := make(map[string]bool)

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typeOfT.Field(i)

		// Handle all nested structs recursively
		if field.Kind() == reflect.Struct && field.Type() != durationType {
			embeddedSetFields, err := processFields(field, fieldType.Type)
			if err != nil {
				return nil, err
			}
			for k, v := range embeddedSetFields {
				setFields[k] = v
			}
			continue
		}

		tag := fieldType.Tag.Get("env")
		if tag == "" {
			continue
		}
		envVal := os.Getenv(tag)
		if envVal == "" {
			continue
		}

		// Mark this field as set from environment using struct type + field name to avoid collisions
		setFields[typeOfT.Name()+"."+fieldType.Name] = true

		if err := setFieldFromString(field, envVal); err != nil {
			return nil, err
		}
	}
	return setFields, nil
}

func checkRequiredAndDefaults(val reflect.Value, typeOfT reflect.Type, setFields map[string]bool) error {
	var result error
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typeOfT.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := checkRequiredAndDefaults(field, fieldType.Type, setFields); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}

		fieldRequired := strings.EqualFold(fieldType.Tag.Get("required"), "true")
		defaultTag := fieldType.Tag.Get("default")
		if fieldRequired && defaultTag != "" { // ignoring required tag if default is set
			fieldRequired = false
		}

		if field.IsZero() && fieldRequired {
			result = multierror.Append(result, fmt.Errorf("required field env:%s / yaml:%s is missing",
				fieldType.Tag.Get("env"), fieldType.Tag.Get("yaml")))
			continue
		}

		// Only apply defaults if the field wasn't explicitly set from environment
		fieldKey := typeOfT.Name() + "." + fieldType.Name
		if field.IsZero() && defaultTag != "" && !setFields[fieldKey] {
			if err := setFieldFromString(field, defaultTag); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result
}

// GetConfigFromEnvVars loads configuration from environment variables only.
// It processes struct tags: env, default, required.
func GetConfigFromEnvVars[T any](dest *T) error {
	val := reflect.ValueOf(dest).Elem()
	typeOfT := val.Type()
	setFields, err := processFields(val, typeOfT)
	if err != nil {
		return err
	}
	if err := checkRequiredAndDefaults(val, typeOfT, setFields); err != nil {
		var zero T
		*dest = zero // resets config to empty
		return err
	}

	if validator, ok := any(*dest).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	return nil
}

// GetConfig loads configuration from YAML file first, then overlays environment variables.
// If filepath is empty, only environment variables are used.
// If allowFileErrors is true, file read/parse errors fallback to env vars only.
func GetConfig[T any](dest *T, filepath string, allowFileErrors bool) error {
	if filepath == "" {
		return GetConfigFromEnvVars(dest)
	}
	data, err := os.ReadFile(filepath)
	if err != nil {
		if allowFileErrors {
			return GetConfigFromEnvVars(dest)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		if allowFileErrors {
			return GetConfigFromEnvVars(dest)
		}
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return GetConfigFromEnvVars(dest)
}
