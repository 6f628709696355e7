package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scolaris API",
        "description": "School administration backend: timetable scheduling, grading, fee recovery and expenses",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and session info"},
        {"name": "Academic Years", "description": "Year lifecycle and activation"},
        {"name": "Classes", "description": "Class roster and fees"},
        {"name": "Teachers", "description": "Teacher roster"},
        {"name": "Subjects", "description": "Subject catalogue"},
        {"name": "Students", "description": "Student enrolment"},
        {"name": "Schedule", "description": "Timetable entries, conflict detection and generation"},
        {"name": "Evaluations", "description": "Grades and weighted averages"},
        {"name": "Expenses", "description": "School spending"},
        {"name": "Recovery", "description": "Fee recovery and payments"},
        {"name": "Dashboard", "description": "Headline counts"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive a token pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List schedule entries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "weekday", "in": "query", "type": "string"},
                    {"name": "room", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedule"],
                "summary": "Create a schedule entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleEntryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicting entry"}
                }
            }
        },
        "/schedule/conflicts": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Scan a year for conflicting pairs",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "room", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/conflicts/resolve": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Apply a resolution action to one entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveConflictRequest"}}
                ],
                "responses": {
                    "200": {"description": "Mutated entry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "204": {"description": "Entry deleted"}
                }
            }
        },
        "/schedule/generate": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Generate a timetable for a year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Generated entries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/recovery": {
            "get": {
                "tags": ["Recovery"],
                "summary": "Fee recovery report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYearId", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "debtors", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluations/averages": {
            "get": {
                "tags": ["Evaluations"],
                "summary": "Per-student weighted averages",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "academicYearId", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Headline counts for a year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYearId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateScheduleEntryRequest": {
            "type": "object",
            "properties": {
                "academic_year_id": {"type": "string"},
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "weekday": {"type": "string", "example": "MONDAY"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "09:00"},
                "room": {"type": "string"}
            },
            "required": ["academic_year_id", "class_id", "subject_id", "teacher_id", "weekday", "start_time", "end_time"]
        },
        "ResolveConflictRequest": {
            "type": "object",
            "properties": {
                "entry_id": {"type": "string"},
                "action": {"type": "string", "enum": ["RETIME", "REASSIGN_TEACHER", "REASSIGN_ROOM", "DELETE"]},
                "new_start": {"type": "string", "example": "10:00"},
                "new_end": {"type": "string", "example": "11:00"},
                "new_teacher_id": {"type": "string"},
                "new_room": {"type": "string"}
            },
            "required": ["entry_id", "action"]
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "academic_year_id": {"type": "string"},
                "subject_ids": {"type": "array", "items": {"type": "string"}},
                "time_slots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlotPayload"}},
                "weekdays": {"type": "array", "items": {"type": "string", "example": "MONDAY"}},
                "lunch_slot": {"type": "integer"},
                "teachers_by_subject": {"type": "object"}
            },
            "required": ["class_id", "academic_year_id", "subject_ids", "weekdays"]
        },
        "TimeSlotPayload": {
            "type": "object",
            "properties": {
                "start": {"type": "string", "example": "08:00"},
                "end": {"type": "string", "example": "09:00"}
            },
            "required": ["start", "end"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
