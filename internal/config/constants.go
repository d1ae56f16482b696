package config

import "time"

// Application constants
const (
	AppName    = "Freight Analyzer"
	AppVersion = "1.0.0"

	// Default workbook column names
	ColShipDate    = "发货日期"
	ColVehicle     = "车牌号"
	ColCategory    = "类别"
	ColDestination = "发往地"
	ColFreight     = "运费"
	ColProfit      = "预估利润"
	ColWeightTons  = "重量（吨）"
	ColMonthTag    = "月份标签"

	// The first row of each month sheet is a title; headers sit on row 2.
	DefaultHeaderRow   = 2
	DefaultTopVehicles = 8

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// File Paths (relative to executable)
	DefaultInputDir  = "data/input"
	DefaultOutputDir = "output"
	DefaultLogsDir   = "logs"
	DefaultCacheDir  = "data/cache"

	DefaultCacheMaxAgeDays = 7
	DefaultRunTimeout      = 10 * time.Minute
	DefaultLogLevel        = "info"

	// Title prefix when more than one month sheet is analyzed together
	MultiMonthPrefix = "多月对比"
)
