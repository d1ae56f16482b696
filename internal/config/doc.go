// Package config provides centralized configuration management for the
// freight analyzer. It loads settings from multiple sources, validates them
// and exposes a type-safe API to the rest of the application.
//
// # Configuration Sources
//
// Configuration is layered in order of increasing precedence:
//
//  1. Default() values
//  2. A YAML file (config.yaml, configs/config.yaml or $FREIGHT_CONFIG)
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables use the FREIGHT_ prefix followed by the section:
//
//	FREIGHT_SERVER_PORT=8080
//	FREIGHT_LOGGING_LEVEL=debug
//	FREIGHT_ANALYSIS_DATE_COLUMN=发货日期
//	FREIGHT_ANALYSIS_PRICE_CANDIDATES=卖出价,单价
//	FREIGHT_CACHE_MAX_AGE_DAYS=7
//
// # Column Mapping
//
// AnalysisConfig names the workbook columns the cleaning pipeline reads.
// Price, deduction and weight are resolved by substring match against the
// candidate lists; the remaining columns must match exactly after header
// whitespace is trimmed.
//
// # Path Management
//
// Paths anchors output, cache and log directories at the executable:
//
//	paths := config.PathsFor(cfg)
//	reportPath := paths.GetOutputPath(config.ArtifactName("1月", config.ArtifactReport, "html", time.Now()))
//
// # Validation
//
// Validate applies go-playground/validator struct tags and returns
// FieldErrors listing every offending field.
package config
