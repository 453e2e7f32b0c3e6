// Package i18n carries the localized user-facing strings the bot sends on
// its own behalf.
package i18n

type Messages struct {
	VerySorryAboutError string
	Greeting            string
	Searching           string
	Thanks              string
	SorryAboutScore     string
	ChooseOption        string
	TokenUpdated        string
	AdminPasswordPrompt string
	AdminWelcome        string
}

var byLocale = map[string]Messages{
	"pt-BR": {
		VerySorryAboutError: "Desculpe-me, ocorreu um erro. Pode tentar novamente?",
		Greeting:            "Olá! Como posso ajudar?",
		Searching:           "Um momento, estou procurando a resposta...",
		Thanks:              "Obrigado pela sua avaliação!",
		SorryAboutScore:     "Puxa, sentimos muito. Vamos melhorar!",
		ChooseOption:        "Escolha uma das opções:",
		TokenUpdated:        "Token atualizado com sucesso.",
		AdminPasswordPrompt: "Informe a senha de administração:",
		AdminWelcome:        "Bem-vindo ao modo de administração.",
	},
	"en-US": {
		VerySorryAboutError: "I am very sorry, an error occurred. Could you try again?",
		Greeting:            "Hello! How can I help?",
		Searching:           "One moment, searching for an answer...",
		Thanks:              "Thanks for your feedback!",
		SorryAboutScore:     "We are sorry to hear that. We will do better!",
		ChooseOption:        "Please choose one of the options:",
		TokenUpdated:        "Token updated successfully.",
		AdminPasswordPrompt: "Please enter the administration password:",
		AdminWelcome:        "Welcome to administration mode.",
	},
}

const DefaultLocale = "pt-BR"

// For returns the message set for the locale, falling back to the default.
func For(locale string) Messages {
	if msgs, ok := byLocale[locale]; ok {
		return msgs
	}
	return byLocale[DefaultLocale]
}
