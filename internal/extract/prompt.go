package extract

import (
	"fmt"
	"time"
)

// buildPrompt renders the fixed extraction prompt with the current date and
// time so the model can resolve relative phrases like "today" and "now".
// The schema examples double as field defaults when information is missing
// from the image.
func buildPrompt(now time.Time) string {
	currentDate := now.Format("2006-01-02")
	currentDay := now.Weekday().String()
	currentTime := now.Format("15:04")

	return fmt.Sprintf(`Analyze this screenshot of an event page and extract information for ALL events visible in the image.
You must return a JSON array containing one or more objects that strictly follow this schema:

[
    {
        "title": string | Enter Title Here,
        "location": string | Enter Location Here,
        "startDateTime": string | %[1]sT12:00,
        "endDateTime": string | %[1]sT13:00,
        "description": string | Enter Description Here
    }
]

Rules:
1. First, identify how many distinct events are visible in the image
2. For each event found, create an object following the schema above
3. All fields must be either a string or datetime-local
4. Datetimes must be in datetime-local format (YYYY-MM-DDTHH:MM)
5. If a field's information is not found for an event, set it to the value in the schema
6. Do not include any additional fields
7. Do not include any markdown formatting, explanatory text, or code blocks.
8. If endTime is not specified for an event, calculate it as one hour after startTime
9. If "today" is mentioned, use %[1]s (today is %[2]s)
10. If "now" is mentioned, use %[3]s
11. If no date is mentioned for an event, use %[1]s as the date
12. Return an empty array [] if no events are found

Focus on extracting only the information that is explicitly visible in the image.
Return only the JSON array, no additional text, no markdown formatting, no code blocks.`,
		currentDate, currentDay, currentTime)
}
