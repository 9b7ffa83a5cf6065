package yaml

import (
	"errors"

	DIC "github.com/redlibre/grip/common"
	"github.com/redlibre/grip/utils"
	yamlv3 "gopkg.in/yaml.v3"
)

var defaultAllYamlConfig *DIC.YamlConfig

// LoadConfig 读取yaml配置文件,填充默认值并应用环境变量覆盖
func LoadConfig(path string) (*DIC.YamlConfig, error) {
	data, err := utils.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig 解析yaml配置内容
func ParseConfig(data []byte) (*DIC.YamlConfig, error) {
	config := &DIC.YamlConfig{}
	if err := yamlv3.Unmarshal(data, config); err != nil {
		return nil, utils.Error("yaml config parse failed: ", err)
	}
	config.ApplyEnv()
	config.InitDefaults()
	if err := config.Client.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func InitAllConfig(path string) (err error) {
	defaultAllYamlConfig, err = LoadConfig(path)
	return err
}

func GetAllConfig() *DIC.YamlConfig {
	if !defaultAllYamlConfig.CheckReady() {
		panic(errors.New("yaml config not ready"))
	}
	return defaultAllYamlConfig
}
