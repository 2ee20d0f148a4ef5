package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type LPRService struct {
	rekognitionClient *rekognition.Client
}

func NewLPRService(rekClient *rekognition.Client) *LPRService {
	return &LPRService{rekognitionClient: rekClient}
}

// ProcessImageForLPR runs Rekognition text detection on the image bytes and
// extracts the most confident license-plate-looking line.
func (s *LPRService) ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s.rekognitionClient == nil {
		return "", 0, fmt.Errorf("rekognition client is not configured")
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{
			Bytes: imageBytes,
		},
	}

	result, err := s.rekognitionClient.DetectText(ctx, input)
	if err != nil {
		log.Printf("LPRService: Rekognition DetectText failed: %v", err)
		return "", 0, fmt.Errorf("rekognition: %w", err)
	}

	log.Printf("LPRService: Rekognition returned %d text blocks", len(result.TextDetections))
	var detectedTexts []string
	var highestConfidencePlate string
	var maxConfidence float32 = 0.0

	// Accepts common plate shapes such as 29A-12345 or AB 123 45.
	plateRegex := regexp.MustCompile(`^[0-9]{2}[A-Z]{1,2}[- ]?[0-9]{3,5}(\.[0-9]{2})?$|^[A-Z]{1,3}[- ]?[0-9]{2,4}[- ]?[A-Z0-9]{0,3}$`)

	for _, textDetection := range result.TextDetections {
		if textDetection.Type != types.TextTypesLine && textDetection.Type != types.TextTypesWord {
			continue
		}
		if textDetection.DetectedText == nil || textDetection.Confidence == nil {
			continue
		}
		txt := strings.ToUpper(strings.ReplaceAll(*textDetection.DetectedText, " ", ""))
		txt = strings.ReplaceAll(txt, ".", "")

		detectedTexts = append(detectedTexts, fmt.Sprintf("%s (%.2f)", txt, *textDetection.Confidence))

		if plateRegex.MatchString(txt) && *textDetection.Confidence > maxConfidence {
			maxConfidence = *textDetection.Confidence
			highestConfidencePlate = txt
		}
	}

	if highestConfidencePlate != "" {
		log.Printf("LPRService: selected plate %q with confidence %.2f", highestConfidencePlate, maxConfidence)
		return highestConfidencePlate, maxConfidence, nil
	}

	return "", 0, fmt.Errorf("no plate recognized in image (detected text: %s)", strings.Join(detectedTexts, ", "))
}
