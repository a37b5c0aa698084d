package render

// Email bodies use the Liquid template language. Bindings are supplied by the
// composer; the layout mirrors the branded HTML the web application sends.

const evaluationTemplate = `
<div style="font-family: Arial, sans-serif; background-color: #ffffff; padding: 30px;">
  <div style="max-width: 600px; margin: auto; background: #ffffff; border-radius: 10px; overflow: hidden;">
    <div style="background-color: #0e026a; text-align: center; padding: 20px; border: 3px solid #1e1b4b; border-radius: 10px;">
      <span style="color: #ffffff; font-size: 24px; font-weight: bold;">{{ organization }}</span>
    </div>
    <div style="padding: 30px; color: #333;">
      <h2>Hi, {{ attendee_name }}!</h2>
      <p>
        Congratulations for completing the <strong>{{ event_name }}</strong>.<br/><br/>
        We would like to invite you to complete an evaluation about the event.
        Once done, you will receive another email with your digital certificate copy.
      </p>
      <p>You may take the evaluation by clicking the button below. Thank you!</p>
      <div style="text-align: center; margin-top: 25px;">
        <a href="{{ evaluation_link }}"
           style="background-color: #1e1b4b; color: #ffffff; padding: 12px 25px;
                  border-radius: 6px; text-decoration: none; font-weight: bold;">
          Take Evaluation
        </a>
      </div>
      <p style="margin-top: 30px; color: #666; font-size: 14px;">
        If you have any questions, please don't hesitate to contact {{ contact_email }}
      </p>
    </div>
  </div>
</div>`

const certificateTemplate = `
<div style="font-family: Arial, sans-serif; background-color: #f5f5f5; padding: 30px;">
  <div style="max-width: 600px; margin: auto; background: #ffffff; border-radius: 10px; overflow: hidden;">
    <div style="background-color: #0e026a; text-align: center; padding: 20px; border: 3px solid #1e1b4b; border-radius: 10px;">
      <span style="color: #ffffff; font-size: 24px; font-weight: bold;">{{ organization }}</span>
    </div>
    <div style="padding: 30px; color: #333;">
      <h2>Congratulations, {{ attendee_name }}!</h2>
      <p>
        Please find attached your <strong>Certificate of {{ certificate_label }}</strong>
        for <strong>{{ event_name }}</strong>.
      </p>
      <p style="margin-top: 30px; color: #666; font-size: 14px;">
        If you have any questions, please don't hesitate to contact {{ contact_email }}
      </p>
    </div>
    <div style="background-color: #f9fafb; padding: 20px; text-align: center; color: #666; font-size: 12px;">
      <p>&copy; {{ year }} {{ organization }}. All rights reserved.</p>
    </div>
  </div>
</div>`
