package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server" json:"server"`
	Data     DataConfig     `toml:"data" json:"data"`
	Log      LogConfig      `toml:"log" json:"log"`
	Sheets   SheetsConfig   `toml:"sheets" json:"sheets"`
	Detect   DetectConfig   `toml:"detect" json:"detect"`
	Planning PlanningConfig `toml:"planning" json:"planning"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port" json:"port"`
	DevMode bool `toml:"dev_mode" json:"devMode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir" json:"dataDir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `toml:"level" json:"level"`             // debug / info / warn / error
	Environment string `toml:"environment" json:"environment"` // production 输出 JSON
}

// SheetsConfig 输入输出工作表名称
type SheetsConfig struct {
	BOM             string `toml:"bom" json:"bom"`
	Plan            string `toml:"plan" json:"plan"`
	Requirement     string `toml:"requirement" json:"requirement"`
	Coverage        string `toml:"coverage" json:"coverage"`
	ExplosionOutput string `toml:"explosion_output" json:"explosionOutput"`
	ShortageOutput  string `toml:"shortage_output" json:"shortageOutput"`
}

// DetectConfig 表头识别配置
type DetectConfig struct {
	HeaderKeywords []string `toml:"header_keywords" json:"headerKeywords"`
	FGLabels       []string `toml:"fg_labels" json:"fgLabels"`
	PreviewRows    int      `toml:"preview_rows" json:"previewRows"`
	LedgerHeader   string   `toml:"ledger_header" json:"ledgerHeader"`
	CoverageAnchor string   `toml:"coverage_anchor" json:"coverageAnchor"`
}

// PlanningConfig 计算配置
type PlanningConfig struct {
	NeedSource      string `toml:"need_source" json:"needSource"` // explosion / ledger
	StrictAlignment bool   `toml:"strict_alignment" json:"strictAlignment"`
	Placeholder     string `toml:"placeholder" json:"placeholder"`
	HighlightColor  string `toml:"highlight_color" json:"highlightColor"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	EnvFileLoaded bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level:       "info",
			Environment: "development",
		},
		Sheets: SheetsConfig{
			BOM:             "BOM",
			Plan:            "plan",
			Requirement:     "RM TOTAL REQUIREMENT",
			Coverage:        "coverage",
			ExplosionOutput: "BOM EXPLOSION",
			ShortageOutput:  "shortage",
		},
		Detect: DetectConfig{
			HeaderKeywords: []string{"Delphi PN", "Material"},
			FGLabels:       []string{"Delphi PN", "Material"},
			PreviewRows:    10,
			LedgerHeader:   "Component",
			CoverageAnchor: "APN",
		},
		Planning: PlanningConfig{
			NeedSource:      "explosion",
			StrictAlignment: true,
			Placeholder:     "–",
			HighlightColor:  "#FFC7CE",
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件目录加载 config.toml 与 .env
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadFromDir(exeDir)
}

// LoadFromDir 依次应用：默认值 → dir/config.toml → dir/.env → MB_* 环境变量
func LoadFromDir(dir string) (*AppConfig, LoadConfigInfo, error) {
	config := DefaultConfig()
	info := LoadConfigInfo{Path: filepath.Join(dir, "config.toml")}

	data, err := os.ReadFile(info.Path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse %s: %w", info.Path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	// .env 可选，已存在的环境变量优先
	if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
		info.EnvFileLoaded = true
	}

	if applyEnv(config) {
		info.PortSpecified = true
	}

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// applyEnv 环境变量覆盖，返回端口是否被指定
func applyEnv(c *AppConfig) bool {
	portSet := false
	if v, ok := lookupInt("MB_PORT"); ok {
		c.Server.Port = v
		portSet = true
	}
	if v, ok := lookupBool("MB_DEV_MODE"); ok {
		c.Server.DevMode = v
	}
	setString(&c.Data.DataDir, "MB_DATA_DIR")
	setString(&c.Log.Level, "MB_LOG_LEVEL")
	setString(&c.Log.Environment, "MB_LOG_ENV")

	setString(&c.Sheets.BOM, "MB_SHEET_BOM")
	setString(&c.Sheets.Plan, "MB_SHEET_PLAN")
	setString(&c.Sheets.Requirement, "MB_SHEET_REQUIREMENT")
	setString(&c.Sheets.Coverage, "MB_SHEET_COVERAGE")

	setString(&c.Planning.NeedSource, "MB_NEED_SOURCE")
	if v, ok := lookupBool("MB_STRICT_ALIGNMENT"); ok {
		c.Planning.StrictAlignment = v
	}
	return portSet
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func lookupInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupBool(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Validate 校验配置取值
func (c *AppConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Planning.NeedSource {
	case "explosion", "ledger":
	default:
		return fmt.Errorf("invalid planning.need_source %q (want explosion or ledger)", c.Planning.NeedSource)
	}
	if c.Detect.PreviewRows < 0 {
		return fmt.Errorf("invalid detect.preview_rows %d", c.Detect.PreviewRows)
	}
	return nil
}

// EnsureDataDir 确保数据目录存在
// 相对路径以可执行文件所在目录为基准
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
