package mail

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type welcomeEmailData struct {
	Name string
}

type listingSubmittedEmailData struct {
	Name     string
	Designer string
	ItemType string
	Price    string
}
