package tools

import (
	"context"
	"strings"
)

const tipsPrompt = "For specific health tips, please mention: nutrition, exercise, hygiene, or mental health."

var healthTips = []struct {
	topic string
	tips  string
}{
	{"nutrition", `Healthy Eating Tips:
- Eat variety: Include grains, pulses, vegetables, fruits
- Traditional Indian diet (dal-roti-sabzi) is well-balanced
- Drink 8-10 glasses of water daily
- Limit sugar, salt, and fried foods
- Include seasonal fruits and vegetables
- Don't skip breakfast`},
	{"exercise", `Physical Activity Guidelines:
- 30 minutes of activity daily (walking, yoga, cycling)
- Traditional exercises: Surya Namaskar, yoga asanas
- Farming and household work also count as exercise
- Start slowly and gradually increase
- Stay hydrated during activity`},
	{"hygiene", `Hygiene Best Practices:
- Wash hands with soap before eating and after toilet
- Drink clean, boiled/filtered water
- Keep surroundings clean to prevent mosquitoes
- Take regular baths
- Trim nails regularly
- Cover mouth when coughing/sneezing`},
	{"mental health", `Mental Wellness Tips:
- Talk to trusted friends/family about feelings
- Practice deep breathing or meditation
- Maintain regular sleep schedule
- Stay connected with community
- Seek help if feeling very sad/anxious
- Helpline: KIRAN 1800-599-0019 (mental health)`},
}

// HealthTipsTool returns preventive-care tips for a small set of topics.
type HealthTipsTool struct{}

// NewHealthTipsTool creates the health tips tool.
func NewHealthTipsTool() *HealthTipsTool { return &HealthTipsTool{} }

func (t *HealthTipsTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: NameHealthTips,
		Description: "Provide evidence-based health tips on nutrition, exercise, hygiene, " +
			"mental health and healthy lifestyle habits.",
		Parameters: []ToolParameter{
			{Name: "topic", ParamType: TypeString, Description: "Health topic like nutrition, exercise, hygiene or mental health", Required: true},
		},
	}
}

func (t *HealthTipsTool) Execute(_ context.Context, args Args) (ToolResult, error) {
	topic := strings.ToLower(args.String("topic"))
	for _, h := range healthTips {
		if strings.Contains(topic, h.topic) {
			return SuccessResult(h.tips), nil
		}
	}
	return SuccessResult(tipsPrompt), nil
}
