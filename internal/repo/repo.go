package repo

import "go.mongodb.org/mongo-driver/mongo"

type Repository struct {
	Interview IInterview
	DB        *mongo.Database
}

func New(db *mongo.Database) *Repository {
	return &Repository{
		DB:        db,
		Interview: NewInterviewRepository(db),
	}
}
