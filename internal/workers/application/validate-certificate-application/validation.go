package validatecertificateapplication

import "medcert-apply/internal/common/validation"

// submissionSchema checks the shape of the submission variable before the
// form rules run over it.
var submissionSchema = validation.MustCompileSchema(`{
	"type": "object",
	"required": ["certificateType", "personal", "medical", "payment", "totalAmount", "currency", "submittedAt"],
	"properties": {
		"certificateType": {"type": "string", "minLength": 1},
		"personal": {
			"type": "object",
			"required": ["firstName", "lastName", "phone", "email"],
			"properties": {
				"firstName": {"type": "string", "minLength": 1},
				"lastName": {"type": "string", "minLength": 1},
				"phone": {"type": "string", "minLength": 10},
				"email": {"type": "string", "minLength": 3}
			}
		},
		"medical": {
			"type": "object",
			"required": ["medicalProblem", "leaveDuration", "certificateStartDate"],
			"properties": {
				"medicalProblem": {"$ref": "#/definitions/selection"},
				"leaveDuration": {"$ref": "#/definitions/selection"},
				"certificateStartDate": {"type": "string"},
				"govtIdProof": {"$ref": "#/definitions/document"}
			}
		},
		"caretaker": {"type": "object"},
		"payment": {
			"type": "object",
			"required": ["selectedPaymentOption", "termsAccepted"],
			"properties": {
				"selectedPaymentOption": {"type": "string", "minLength": 1},
				"specialFormat": {"type": "boolean"},
				"specialFormatFile": {"$ref": "#/definitions/document"},
				"termsAccepted": {"const": true}
			}
		},
		"phoneVerified": {"type": "boolean"},
		"totalAmount": {"type": "integer", "minimum": 1},
		"currency": {"const": "INR"},
		"submittedAt": {"type": "string", "format": "date-time"}
	},
	"definitions": {
		"selection": {
			"type": "object",
			"required": ["value", "other"],
			"properties": {
				"value": {"type": "string"},
				"other": {"type": "boolean"}
			}
		},
		"document": {
			"type": "object",
			"required": ["key", "fileName", "contentType", "size"],
			"properties": {
				"key": {"type": "string", "minLength": 1},
				"fileName": {"type": "string"},
				"contentType": {"type": "string"},
				"size": {"type": "integer", "minimum": 1}
			}
		}
	}
}`)
