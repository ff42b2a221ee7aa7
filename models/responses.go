package models

// DTO models for API responses

// DateFormat is the DD.MM.YYYY layout used for every date in responses.
const DateFormat = "02.01.2006"

type UserBrief struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type UserResponse struct {
	ID               uint    `json:"id"`
	Username         string  `json:"username"`
	Email            string  `json:"email"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	PhoneNumber      string  `json:"phone_number"`
	Photo            *string `json:"photo"`
	Age              *int    `json:"age"`
	Bio              *string `json:"bio"`
	IsSubscribed     bool    `json:"is_subscribed"`
	SubscribersCount int64   `json:"subscribers_count"`
	Activities       []uint  `json:"activities"`
}

type LocationResponse struct {
	ID      uint   `json:"id"`
	Address string `json:"address"`
	Point   string `json:"point"`
}

type CommentResponse struct {
	ID         uint      `json:"id"`
	Author     UserBrief `json:"author"`
	Text       string    `json:"text"`
	PubDate    string    `json:"pub_date"`
	Event      uint      `json:"event"`
	IsLiked    bool      `json:"is_liked"`
	LikesCount int64     `json:"likes_count"`
}

type EventResponse struct {
	ID                uint              `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Activity          []Activity        `json:"activity"`
	Datetime          string            `json:"datetime"`
	Author            UserBrief         `json:"author"`
	Duration          int               `json:"duration"`
	Location          LocationResponse  `json:"location"`
	Comments          []CommentResponse `json:"comments"`
	IsFavorite        bool              `json:"is_favorite"`
	IsParticipate     bool              `json:"is_participate"`
	ParticipantsCount int64             `json:"participants_count"`
}

func NewUserBrief(u User) UserBrief {
	return UserBrief{ID: u.ID, Username: u.Username}
}

func NewLocationResponse(l Location) LocationResponse {
	return LocationResponse{ID: l.ID, Address: l.Address, Point: l.Point}
}
