package sqlinline

const QInsertHistory = `--sql 5e8a1c3f-7b2d-4a9e-b6f0-2c4d8e1a9b57
insert into generation_history (
    id, user_id, mode, original_prompt, final_prompt, enhanced, fields,
    reference, requested_count, generated_count, image_urls, created_at
)
values (
    $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::boolean, $7::jsonb,
    $8::jsonb, $9::int, $10::int, $11::jsonb, $12::timestamptz
);
`

// QTrimHistory keeps the newest $2 rows for a user.
const QTrimHistory = `--sql 9b3f6d2a-4e1c-4b8a-a7d5-1f0e3c6b9d84
delete from generation_history
where user_id = $1::uuid
  and id not in (
    select id
    from generation_history
    where user_id = $1::uuid
    order by created_at desc, id desc
    limit $2::int
  );
`

const QListHistory = `--sql 2d7c4e9b-6a1f-4c3e-8b0d-5e9a2f7c1b36
select id::text, user_id::text, mode, original_prompt, final_prompt, enhanced, fields,
       reference, requested_count, generated_count, image_urls, created_at
from generation_history
where user_id = $1::uuid
order by created_at desc, id desc
limit $2::int offset $3::int;
`

const QCountHistory = `--sql c6e1a8f3-3d5b-4f2a-9c7e-8b1d4a6f0e29
select count(*)
from generation_history
where user_id = $1::uuid;
`

const QDeleteHistory = `--sql e4b9d2c7-8f3a-4e1b-a6c0-7d2f5b9e3a18
delete from generation_history
where user_id = $1::uuid and id = $2::uuid;
`

const QClearHistory = `--sql 0a5f7e3d-1c9b-4d6a-8e2f-4b7c0d9a6e51
delete from generation_history
where user_id = $1::uuid;
`
