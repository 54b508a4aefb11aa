package translate

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// DefaultPrompt asks for the translation only, with no commentary
const DefaultPrompt = "将以下文本翻译为{target}，注意只需要输出翻译后的结果，不要额外解释：\n\n{text}"

// Prompts holds the instruction templates sent to model providers.
// {target} is replaced by the target language's own name and {text} by the text.
type Prompts struct {
	System string `yaml:"system"`
	Prompt string `yaml:"prompt"`
}

// DefaultPrompts returns the built-in templates
func DefaultPrompts() Prompts {
	return Prompts{Prompt: DefaultPrompt}
}

// LoadPrompts reads templates from a YAML file. Missing fields keep their defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var loaded Prompts
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return p, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}

	if loaded.Prompt != "" {
		if !strings.Contains(loaded.Prompt, "{text}") {
			return p, fmt.Errorf("prompt in %s has no {text} placeholder", path)
		}
		p.Prompt = loaded.Prompt
	}
	p.System = loaded.System
	return p, nil
}

// Render fills the user prompt
func (p Prompts) Render(targetLang, text string) string {
	return expand(p.Prompt, targetLang, text)
}

// RenderSystem fills the system prompt, empty when none is configured
func (p Prompts) RenderSystem(targetLang string) string {
	return expand(p.System, targetLang, "")
}

func expand(tmpl, targetLang, text string) string {
	if tmpl == "" {
		return ""
	}
	r := strings.NewReplacer("{target}", DisplayName(targetLang), "{text}", text)
	return r.Replace(tmpl)
}

// names that x/text either lacks or renders differently from common usage
var displayOverrides = map[string]string{
	"zh":      "中文",
	"zh-Hans": "中文",
	"zh-Hant": "繁體中文",
	"yue":     "粵語",
	"tl":      "Filipino",
}

// DisplayName returns a language's name written in that language, e.g.
// "Deutsch" for "de". Unknown codes are returned unchanged.
func DisplayName(code string) string {
	if name, ok := displayOverrides[code]; ok {
		return name
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
