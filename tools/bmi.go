package tools

import (
	"context"
	"fmt"
)

// BMI category labels.
const (
	BMIUnderweight = "Underweight"
	BMINormal      = "Normal weight"
	BMIOverweight  = "Overweight"
	BMIObese       = "Obese"
)

// BMITool computes body mass index from weight and height.
type BMITool struct{}

// NewBMITool creates the BMI calculator.
func NewBMITool() *BMITool { return &BMITool{} }

func (t *BMITool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        NameBMI,
		Description: "Calculate Body Mass Index (BMI) and provide the health category.",
		Parameters: []ToolParameter{
			{Name: "weight_kg", ParamType: TypeNumber, Description: "Weight in kilograms", Required: true},
			{Name: "height_cm", ParamType: TypeNumber, Description: "Height in centimeters", Required: true},
		},
	}
}

func (t *BMITool) Execute(_ context.Context, args Args) (ToolResult, error) {
	weight, height := args.Float("weight_kg"), args.Float("height_cm")
	if height <= 0 {
		return FailureResultf("Error calculating BMI: height must be a positive number of centimeters"), nil
	}
	if weight <= 0 {
		return FailureResultf("Error calculating BMI: weight must be a positive number of kilograms"), nil
	}

	bmi := ComputeBMI(weight, height)
	category, advice := ClassifyBMI(bmi)

	return SuccessResult(fmt.Sprintf(`BMI Calculation Results:
- BMI: %.1f
- Category: %s
- Recommendation: %s

Note: BMI is a general indicator and doesn't account for muscle mass, age, or other factors.`, bmi, category, advice)), nil
}

// ComputeBMI returns weight / (height in meters)^2.
func ComputeBMI(weightKg, heightCm float64) float64 {
	heightM := heightCm / 100
	return weightKg / (heightM * heightM)
}

// ClassifyBMI maps a BMI value to its category and advice.
// Bands are half-open: [18.5, 25) is normal and 30 and above is obese.
func ClassifyBMI(bmi float64) (category, advice string) {
	switch {
	case bmi < 18.5:
		return BMIUnderweight, "Consider consulting a nutritionist for healthy weight gain."
	case bmi < 25:
		return BMINormal, "Great! Maintain your healthy lifestyle."
	case bmi < 30:
		return BMIOverweight, "Consider regular exercise and balanced diet."
	default:
		return BMIObese, "Please consult a doctor for personalized health plan."
	}
}
