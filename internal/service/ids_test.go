package service

import "github.com/noah-isme/student-clubs-api/internal/models"

// Ids for payloads that are validated as uuid4.
const (
	studentUUID    = "5b1f0c2e-8a4d-4c1e-9f3a-2d7e6b8c1a01"
	lecturerUUID   = "5b1f0c2e-8a4d-4c1e-9f3a-2d7e6b8c1a02"
	chessClubUUID  = "7c2e1d3f-9b5e-4d2f-a04b-3e8f7c9d2b01"
	calculusUUID   = "9d3f2e4a-0c6f-4e3a-b15c-4f9a8d0e3c01"
	physicsUUID    = "9d3f2e4a-0c6f-4e3a-b15c-4f9a8d0e3c02"
	fallTermUUID   = "1e4a3f5b-1d7a-4f4b-8c6d-5a0b9e1f4d01"
	springTermUUID = "1e4a3f5b-1d7a-4f4b-8c6d-5a0b9e1f4d02"
	missingUUID    = "00000000-0000-4000-8000-000000000000"
)

// newUUIDUserFixture adds a uuid student and lecturer to the user fixture.
func newUUIDUserFixture() *mockUserRepo {
	users := newUserFixture()
	users.users[studentUUID] = &models.User{ID: studentUUID, Email: "ada@example.com", FullName: "Ada", Role: models.RoleStudent, Active: true}
	users.users[lecturerUUID] = &models.User{ID: lecturerUUID, Email: "lin@example.com", FullName: "Lin", Role: models.RoleLecturer, Active: true}
	return users
}

// newUUIDClubRepoStub registers the chess club under a uuid as well.
func newUUIDClubRepoStub() *clubRepoStub {
	clubs := newClubRepoStub()
	clubs.clubs[chessClubUUID] = &models.ClubSummary{Club: models.Club{ID: chessClubUUID, Name: "Chess"}}
	return clubs
}
