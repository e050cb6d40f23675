package persona

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"

	"github.com/satyarth42/scamtrap/internal/classify"
	"github.com/satyarth42/scamtrap/internal/session"
)

// Persona is a fixed behavioral profile determining which utterance bank
// the decoy draws from.
type Persona string

const (
	Elderly            Persona = "elderly"
	BusyProfessional   Persona = "busy_professional"
	Student            Persona = "student"
	SmallBusinessOwner Persona = "small_business_owner"
)

// ForCategory maps a scam type to the persona most likely to keep that
// conversation going.
func ForCategory(cat classify.Category) Persona {
	switch cat {
	case classify.CategoryLottery:
		return Elderly
	case classify.CategoryBanking:
		return BusyProfessional
	case classify.CategoryOTP:
		return Student
	case classify.CategoryPayment:
		return SmallBusinessOwner
	default:
		return Elderly
	}
}

var neutralGreetings = []string{
	"I am not sure I understand. Can you explain?",
	"Sorry, who is this? What is this message about?",
	"I didn't quite get that. Could you please explain what this is regarding?",
}

var openers = map[Persona][]string{
	Elderly: {
		"Hello! I got your message. This sounds very interesting! Can you please explain how this works? I am not very good with technology.",
		"Oh my! Really? I have never won anything before. How did you select me? What do I need to do?",
		"This is wonderful news! But I am a bit confused. Can you tell me step by step what I need to do?",
	},
	BusyProfessional: {
		"Hi. Got your msg. Interesting but busy rn. Can u send details quickly?",
		"Ok. What's this about? Give me the quick version pls.",
		"Received. Need more info. What exactly do I need to do?",
	},
	Student: {
		"Whoa really?? That's awesome! How does this work man?",
		"No way! I won something? Tell me more bro!",
		"This is cool! But like, what do I gotta do?",
	},
	SmallBusinessOwner: {
		"I received your message. Please explain clearly what this is about and what I need to do.",
		"Hello. I need to understand this properly. What is this regarding?",
		"I got your message. Need full details before proceeding with anything.",
	},
}

var cautionProbes = map[Persona][]string{
	Elderly: {
		"I want to help but I need to be careful with my bank details. Can you first tell me your company name and office address?",
		"Okay, I understand a little. But where should I send the money? Which bank account?",
		"My son told me to be careful with bank information. Can you send me some proof or ID first?",
	},
	BusyProfessional: {
		"Wait. Need to verify this. What's ur company registration? And where exactly should payment go?",
		"Hold on. Send me official details first. Company name, GST number etc.",
		"Not comfortable sharing bank info yet. Send your payment details first so I can verify.",
	},
	Student: {
		"Okay cool but my dad said to be careful online. Can u show some proof this is real?",
		"Sounds good! Where do I send money? Ur account or upi?",
		"Alright but first tell me ur company name and stuff so I know its legit.",
	},
	SmallBusinessOwner: {
		"I need official documentation first. What is your company name, GST number, and office address?",
		"Business requires proper verification. Send me your payment account details so I can check with my bank.",
		"I need to see credentials first. Where is your office located and what are your bank details?",
	},
}

var nextStepProbes = map[Persona][]string{
	Elderly: {
		"Can you please send me the link again? I didn't see it clearly.",
		"What documents do I need to send? And where should I send them?",
		"I am ready to proceed. What is the next step exactly?",
	},
	BusyProfessional: {
		"Ok what's next? Send link or details.",
		"Ready to go. What info u need from me?",
		"Just tell me quickly what to do next.",
	},
	Student: {
		"Alright what now? What do I need to send u?",
		"Cool! So whats the next step?",
		"Ok I'm in! Tell me what to do!",
	},
	SmallBusinessOwner: {
		"Understood. What is the next step in this process?",
		"Okay. What information or documents do you require from me?",
		"I am ready to proceed. Please outline the next steps clearly.",
	},
}

var paymentRequests = map[Persona][]string{
	Elderly: {
		"I want to send the money. Which account should I transfer to? Please share your bank account number or UPI ID.",
		"Tell me your UPI ID so I can send payment through Google Pay or PhonePe.",
		"I need your bank account details please. Account number and IFSC code.",
	},
	BusyProfessional: {
		"Just send ur upi id. Easier that way.",
		"Whats ur account number? Need to transfer asap.",
		"Give me ur payment details - upi or account number.",
	},
	Student: {
		"Yo send ur upi id ill pay rn!",
		"What's ur paytm or gpay id? Or account no?",
		"Dude just send ur bank details ill transfer!",
	},
	SmallBusinessOwner: {
		"I am ready to make the payment. Please provide your bank account number and IFSC code.",
		"Share your UPI ID or bank account details for the transfer.",
		"I need your official payment account details to proceed with the transaction.",
	},
}

var confirmRequests = map[Persona][]string{
	Elderly: {
		"Let me write it down. Can you please repeat the account number or UPI ID once more so I don't make mistake?",
		"I want to make sure I have it correctly. Can you confirm the details again?",
		"Please confirm once more - I should send to which account exactly?",
	},
	BusyProfessional: {
		"Got it. Just confirming - correct?",
		"Double checking - send to this account right?",
		"Ok noted. Let me verify the details.",
	},
	Student: {
		"Wait let me confirm - is that right?",
		"Just checking i got it correct.",
		"Lemme make sure - can u repeat?",
	},
	SmallBusinessOwner: {
		"Let me verify the details. Can you please reconfirm for accuracy?",
		"I have noted the account details. Please confirm once more.",
		"Before proceeding, I want to double-check the payment details are correct.",
	},
}

var linkStalls = map[Persona][]string{
	Elderly: {
		"The link is not opening on my phone. Can you send it again? Or give me your office phone number to call?",
		"I clicked the link but it's asking for password. What should I enter?",
		"The website is not loading. Is there another way to do this? Maybe I can visit your office?",
	},
	BusyProfessional: {
		"Link broken. Send again or just give me ur number",
		"Site not working. Got another link?",
		"Cant access that. Alternative method?",
	},
	Student: {
		"Bro link not working! Send another one or ur whatsapp no",
		"Cant open it man. U got insta or something?",
		"Link is dead. Send again?",
	},
	SmallBusinessOwner: {
		"The link appears to be broken. Please send another link or provide alternative contact details.",
		"I cannot access that website. Is there an official email or phone number I can use?",
		"The link is not functional. Please share your office address or contact number.",
	},
}

var stalls = map[Persona][]string{
	Elderly: {
		"Sorry, my phone battery died yesterday. I'm trying now. Can you send all details again?",
		"My bank app is showing error. Do you have another account number I can try?",
		"I went to bank but they asked for your company registration certificate. Can you email it to me?",
		"My grandson is helping me. He says I need your PAN card and address proof. Can you share?",
		"The UPI payment failed. Do you use PhonePe or Paytm? What's your ID there?",
	},
	BusyProfessional: {
		"Payment failed. Tech issue. Send alternate account?",
		"Bank blocked transaction. Need ur pan details to verify",
		"System error. Ur other upi ids?",
		"Transfer pending. Send ur phonepe/paytm id as backup",
		"Not going through. What's ur company details?",
	},
	Student: {
		"Bro payment not working! U got another upi?",
		"My phonepe stuck. Send ur gpay or paytm id?",
		"Transaction failed man. Got other account no?",
		"App crashed! Whats ur alternate number?",
		"Didn't work. U have whatsapp business number?",
	},
	SmallBusinessOwner: {
		"The transaction is pending. Please provide alternative payment account details.",
		"My bank requires additional verification. Share your company's GST certificate and PAN card.",
		"Payment gateway error occurred. Do you have another business account?",
		"I need official documentation for my records. Send your company registration and contact details.",
		"Transfer unsuccessful. Please provide your registered email and alternate phone number.",
	},
}

// investigativeQuestions make the counterpart reveal identifying details.
// Each is asked at most once per session.
var investigativeQuestions = []string{
	"What is your full name and which company are you calling from?",
	"Can you give me your office address and a callback number?",
	"What is your employee ID or badge number?",
	"Which department issued this case? What is the case reference number?",
	"Can you email me the official letter from your registered company email?",
	"What is your supervisor's name and number in case the call drops?",
	"Where is your office registered? What is the GST number?",
	"Can you share your WhatsApp business number so I can send the documents?",
	"Which branch are you calling from exactly?",
	"Can you send me your company registration certificate?",
}

var (
	handleHint  = regexp.MustCompile(`[\w.\-]+@[\w.\-]+`)
	accountHint = regexp.MustCompile(`\b\d{9,18}\b`)
	urlHint     = regexp.MustCompile(`https?://`)
)

var urgencyMarkers = []string{
	"urgent", "immediately", "right now", "last warning", "final notice",
	"within", "deadline", "hurry", "asap",
}

// Responder selects the decoy's next utterance. Selection among eligible
// utterances is uniform random; only category membership is a contract,
// never the exact string.
type Responder struct{}

func NewResponder() *Responder { return &Responder{} }

// Reply picks the next decoy line given the incoming text, the detected
// scam type, and the session so far. When an investigative question is
// chosen it is marked as used on the session; turn counting belongs to
// the caller.
func (r *Responder) Reply(text string, cat classify.Category, st *session.State) string {
	p := ForCategory(cat)
	if strings.TrimSpace(text) == "" {
		return pick(neutralGreetings)
	}

	turn := len(st.Transcript(session.RoleDecoy))
	if turn == 0 {
		return pick(openers[p])
	}

	// Pressure gets de-escalation, not confrontation.
	if Aggressive(text) {
		return pick(stalls[p])
	}

	if turn >= 3 && turn%2 == 1 {
		if q, ok := r.unusedQuestion(st); ok {
			st.MarkQuestionAsked(q)
			return q
		}
		return pick(stalls[p])
	}

	lower := strings.ToLower(text)
	switch {
	case turn == 1 && (strings.Contains(lower, "account") || strings.Contains(lower, "bank") || strings.Contains(lower, "upi")):
		return pick(cautionProbes[p])
	case turn == 1:
		return pick(nextStepProbes[p])
	case turn == 2 && !handleHint.MatchString(text) && !accountHint.MatchString(text):
		return pick(paymentRequests[p])
	case turn == 2:
		return pick(confirmRequests[p])
	case urlHint.MatchString(text):
		return pick(linkStalls[p])
	default:
		return pick(stalls[p])
	}
}

// Neutral returns a generic non-engaged reply.
func (r *Responder) Neutral() string {
	return pick(neutralGreetings)
}

func (r *Responder) unusedQuestion(st *session.State) (string, bool) {
	eligible := make([]string, 0, len(investigativeQuestions))
	for _, q := range investigativeQuestions {
		if !st.QuestionAsked(q) {
			eligible = append(eligible, q)
		}
	}
	if len(eligible) == 0 {
		return "", false
	}
	return pick(eligible), true
}

// Aggressive reports whether the incoming text reads as pressure: mostly
// upper-case shouting, or explicit urgency/deadline markers.
func Aggressive(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 10 && float64(upper)/float64(letters) > 0.6 {
		return true
	}

	lower := strings.ToLower(text)
	for _, marker := range urgencyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rand.Intn(len(options))]
}
