package submission

// Question is one yes/no item of the self-report form.
type Question struct {
	Key   string
	Label string
}

// Questions is the fixed question set, in the order fields appear in the
// webhook embed and columns appear in the record store.
var Questions = []Question{
	{Key: "selfbotted", Label: "User has selfbotted"},
	{Key: "modded", Label: "User has used a custom/modded client"},
	{Key: "disabled", Label: "User has been disabled before"},
	{Key: "selfDisabled", Label: "User has disabled themselves before"},
	{Key: "hasAlts", Label: "User has alternative accounts"},
	{Key: "hasBeenWarned", Label: "User has been warned"},
	{Key: "hasSystemMessage", Label: "User has had a system message"},
	{Key: "markedSuspicious", Label: "User has been marked suspicious"},
	{Key: "usedZendesk", Label: "User has used Zendesk"},
	{Key: "botApplication", Label: "User has created a bot application"},
	{Key: "verifiedEmail", Label: "User has verified their e-mail"},
	{Key: "verifiedPhone", Label: "User has verified their phone number"},
	{Key: "dataTracking", Label: "User has data tracking enabled"},
	{Key: "2fa", Label: "User has 2FA enabled"},
	{Key: "over18", Label: "User is over 18"},
}

// QuestionKeys lists the keys of Questions in order.
func QuestionKeys() []string {
	keys := make([]string, len(Questions))
	for i, q := range Questions {
		keys[i] = q.Key
	}
	return keys
}

// Platforms accepted in platformsUsed. Anything else is dropped.
var Platforms = []string{"Desktop", "Web", "iOS", "Android"}
